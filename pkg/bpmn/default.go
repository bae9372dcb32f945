package bpmn

import "github.com/flowgraph/flowdesigner/internal/core/diagram"

// LeaveProcessID is the process id of the built-in leave-request document.
const LeaveProcessID = "leave_request"

// LeaveProcessName names the built-in leave-request process.
const LeaveProcessName = "请假流程"

// LeaveProcess returns the leave-request flow as a diagram: start, submit,
// approval gateway, approved and rejected tasks, end.
func LeaveProcess() *diagram.Diagram {
	d := diagram.New(LeaveProcessID, LeaveProcessName)
	nodes := []*diagram.Node{
		{ID: "start", Type: diagram.NodeTypeStart, X: 100, Y: 200, Width: 60, Height: 60, Text: "开始"},
		{ID: "submit", Type: diagram.NodeTypeTask, X: 250, Y: 200, Width: 100, Height: 60, Text: "提交申请"},
		{ID: "approve", Type: diagram.NodeTypeGateway, X: 420, Y: 200, Width: 110, Height: 70, Text: "审批"},
		{ID: "approved", Type: diagram.NodeTypeTask, X: 600, Y: 120, Width: 100, Height: 60, Text: "通过"},
		{ID: "rejected", Type: diagram.NodeTypeTask, X: 600, Y: 280, Width: 100, Height: 60, Text: "驳回"},
		{ID: "end", Type: diagram.NodeTypeEnd, X: 780, Y: 200, Width: 60, Height: 60, Text: "结束"},
	}
	edges := []*diagram.Edge{
		{ID: "flow_submit", Source: "start", Target: "submit"},
		{ID: "flow_approve", Source: "submit", Target: "approve"},
		{ID: "flow_approved", Source: "approve", Target: "approved", Text: "同意"},
		{ID: "flow_rejected", Source: "approve", Target: "rejected", Text: "拒绝"},
		{ID: "flow_approved_end", Source: "approved", Target: "end"},
		{ID: "flow_rejected_end", Source: "rejected", Target: "end"},
	}
	for _, n := range nodes {
		must(d.AddNode(n))
	}
	for _, e := range edges {
		must(d.AddEdge(e))
	}
	return d
}

// must panics on errors that can only come from a broken built-in fixture.
func must(err error) {
	if err != nil {
		panic("bpmn: leave process: " + err.Error())
	}
}

// DefaultLeaveProcess is the document deployed when the canvas is empty.
func DefaultLeaveProcess() string {
	doc, err := Export(LeaveProcess(), ExportOptions{ProcessID: LeaveProcessID, ProcessName: LeaveProcessName})
	must(err)
	return doc
}
