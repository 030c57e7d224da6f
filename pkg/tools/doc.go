// Package tools defines the tool contract and the registry the agent loop
// dispatches through.
//
// Invariants:
//   - Names are case-sensitive and unique; registering a name again replaces
//     the earlier tool.
//   - The registry does not validate arguments. Each tool validates its own,
//     Definition does so against its generated JSON schema.
//   - Execute on an unknown name fails with ErrToolNotFound.
//
// Usage:
//
//	reg := tools.NewRegistry(logger)
//	reg.Register(&tools.Definition{
//		ToolName: "echo",
//		Summary:  "Echo input",
//		Params:   []tools.Parameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
//			return args["text"].(string), nil
//		},
//	})
//	out, err := reg.Execute(ctx, "echo", map[string]interface{}{"text": "hi"})
package tools
