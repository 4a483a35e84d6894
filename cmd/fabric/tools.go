package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
	"github.com/agent-fabric/fabric/server"
)

func registerBuiltinTools(srv *server.Server) {
	must(srv.RegisterTool(&protocol.ToolDescriptor{
		Name:        "echo",
		Description: "Returns the text parameter unchanged.",
		Parameters: protocol.ParameterSchema{
			"text": {Type: "string", Description: "Text to echo back.", Required: true},
		},
	}, handleEcho))

	must(srv.RegisterTool(&protocol.ToolDescriptor{
		Name:        "word_count",
		Description: "Counts the words in the text parameter.",
		Parameters: protocol.ParameterSchema{
			"text": {Type: "string", Description: "Text to count words in.", Required: true},
		},
	}, handleWordCount))

	must(srv.RegisterTool(&protocol.ToolDescriptor{
		Name:        "datetime",
		Description: "Returns the current date and time in RFC3339 format.",
	}, handleDatetime))
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("failed to register tool: %v", err))
	}
}

func handleEcho(_ context.Context, params map[string]any) (any, error) {
	return params["text"], nil
}

func handleWordCount(_ context.Context, params map[string]any) (any, error) {
	text, _ := params["text"].(string)
	return len(strings.Fields(text)), nil
}

func handleDatetime(_ context.Context, _ map[string]any) (any, error) {
	return time.Now().Format(time.RFC3339), nil
}
