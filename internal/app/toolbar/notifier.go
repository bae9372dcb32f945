package toolbar

import "go.uber.org/zap"

// Notice is a user-facing message about an action.
type Notice struct {
	Action  string
	Message string
	Err     error
}

// Notifier surfaces action outcomes to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a zap logger: failures at error level,
// everything else at info.
type LogNotifier struct {
	Log *zap.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notice) {
	log := l.Log
	if log == nil {
		return
	}
	if n.Err != nil {
		log.Error(n.Message, zap.String("action", n.Action), zap.Error(n.Err))
		return
	}
	log.Info(n.Message, zap.String("action", n.Action))
}
