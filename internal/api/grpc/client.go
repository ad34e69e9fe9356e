package grpcapi

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Assistant service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Reply is a Chat or Ask response.
type Reply struct {
	SessionID string
	Answer    string
}

// IngestReply is an Ingest response.
type IngestReply struct {
	SessionID string
	Outcome   string
	Chars     int
	Text      string
	Error     string
}

// Chat sends message in sessionID, or in a new session when sessionID is empty.
func (c *Client) Chat(ctx context.Context, sessionID, message string, opts ...grpc.CallOption) (Reply, error) {
	out, err := c.invoke(ctx, MethodChat, map[string]any{
		FieldSessionID: sessionID,
		FieldMessage:   message,
	}, opts...)
	if err != nil {
		return Reply{}, err
	}
	return Reply{SessionID: stringField(out, FieldSessionID), Answer: stringField(out, FieldAnswer)}, nil
}

// Ingest uploads a document into sessionID, or into a new session.
func (c *Client) Ingest(ctx context.Context, sessionID, name string, content []byte, opts ...grpc.CallOption) (IngestReply, error) {
	out, err := c.invoke(ctx, MethodIngest, map[string]any{
		FieldSessionID: sessionID,
		FieldName:      name,
		FieldContent:   base64.StdEncoding.EncodeToString(content),
	}, opts...)
	if err != nil {
		return IngestReply{}, err
	}
	return IngestReply{
		SessionID: stringField(out, FieldSessionID),
		Outcome:   stringField(out, FieldOutcome),
		Chars:     int(out.GetFields()[FieldChars].GetNumberValue()),
		Text:      stringField(out, FieldText),
		Error:     stringField(out, FieldError),
	}, nil
}

// Ask asks question against the document in sessionID.
func (c *Client) Ask(ctx context.Context, sessionID, question string, opts ...grpc.CallOption) (Reply, error) {
	out, err := c.invoke(ctx, MethodAsk, map[string]any{
		FieldSessionID: sessionID,
		FieldQuestion:  question,
	}, opts...)
	if err != nil {
		return Reply{}, err
	}
	return Reply{SessionID: stringField(out, FieldSessionID), Answer: stringField(out, FieldAnswer)}, nil
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
