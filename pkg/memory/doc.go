// Package memory holds the agent's file-based context: a long-term note,
// append-only daily notes and the workspace bootstrap documents.
//
// Layout under the workspace:
//
//	memory/MEMORY.md               long-term note, overwritten wholesale
//	memory/YYYYMM/YYYYMMDD.md      daily note, one per UTC day
//	USER.md, SOUL.md, IDENTITY.md  bootstrap documents
//
// Usage:
//
//	store, _ := memory.NewContextStore(workspace, logger)
//	_ = store.AppendToday("User: hi\nAssistant: hello\n")
//	block := store.ContextBlock()
//	_ = block
package memory
