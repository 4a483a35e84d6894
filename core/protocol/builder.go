package protocol

import "time"

type MessageBuilder struct {
	message *Message
}

func NewMessage(sender, receiver string, messageType MessageType, payload any) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			ID:        generateID(),
			Sender:    sender,
			Receiver:  receiver,
			Type:      messageType,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	}
}

func NewToolCallMessage(sender, receiver string, call *ToolCall) *MessageBuilder {
	return NewMessage(sender, receiver, MessageTypeToolCall, call).CorrelationID(call.CallID)
}

func NewToolResultMessage(sender, receiver string, result *ToolResult) *MessageBuilder {
	return NewMessage(sender, receiver, MessageTypeToolResult, result).CorrelationID(result.CallID)
}

func NewDiscoveryRequestMessage(sender, receiver string, req *DiscoveryRequest) *MessageBuilder {
	return NewMessage(sender, receiver, MessageTypeDiscoveryRequest, req)
}

func NewDiscoveryResponseMessage(sender, receiver string, resp *DiscoveryResponse) *MessageBuilder {
	return NewMessage(sender, receiver, MessageTypeDiscoveryResponse, resp)
}

func NewErrorMessage(sender, receiver string, payload *ErrorPayload) *MessageBuilder {
	return NewMessage(sender, receiver, MessageTypeError, payload)
}

func (mb *MessageBuilder) CorrelationID(id string) *MessageBuilder {
	mb.message.CorrelationID = id
	return mb
}

func (mb *MessageBuilder) Metadata(metadata map[string]string) *MessageBuilder {
	mb.message.Metadata = metadata
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}
