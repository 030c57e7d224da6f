// Package session persists conversation history as one JSON document per
// session key.
//
// Invariants:
// - Session keys are validated and path-safe.
// - A missing or unreadable session file loads as an empty session.
// - Saves for the same session are serialized and replace the file atomically.
// - Load/save/delete operations are observable via tracing and metrics.
//
// Usage:
//
//	mgr, _ := session.New(filepath.Join(workspace, "sessions"), logger)
//	sess, _ := mgr.Load(ctx, "cli")
//	sess.Append(llm.UserMessage("hello"))
//	_ = mgr.Save(ctx, "cli", sess)
package session
