// Package flowdesigner is the public façade over the editor: it wires a
// snapshot store, serializer and engine client from configuration and hands
// out canvases with their toolbars, so callers need not import internal
// packages.
package flowdesigner
