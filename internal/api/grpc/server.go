// Package grpcapi serves the assistant over gRPC.
//
// The service is registered from a hand-written ServiceDesc whose messages
// are google.protobuf.Struct values, so no generated code is needed.
package grpcapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/service/assistant"
	"ai-offline-assistant/internal/session"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "assistant.v1.Assistant"

// Full method names.
const (
	MethodChat   = "/" + ServiceName + "/Chat"
	MethodIngest = "/" + ServiceName + "/Ingest"
	MethodAsk    = "/" + ServiceName + "/Ask"
)

// Request and response field names.
const (
	FieldSessionID = "sessionId"
	FieldMessage   = "message"
	FieldQuestion  = "question"
	FieldAnswer    = "answer"
	FieldName      = "name"
	FieldContent   = "content" // base64
	FieldOutcome   = "outcome"
	FieldChars     = "chars"
	FieldText      = "text"
	FieldError     = "error"
)

// AssistantServer is the server API for the Assistant service.
type AssistantServer interface {
	Chat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Ingest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Ask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Assistant service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Chat", Handler: unaryHandler(MethodChat, AssistantServer.Chat)},
		{MethodName: "Ingest", Handler: unaryHandler(MethodIngest, AssistantServer.Ingest)},
		{MethodName: "Ask", Handler: unaryHandler(MethodAsk, AssistantServer.Ask)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "assistant/v1/assistant.proto",
}

func unaryHandler(fullMethod string, call func(AssistantServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssistantServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AssistantServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Assistant is the pipeline the server drives.
type Assistant interface {
	Chat(ctx context.Context, sess *session.Session, input string) (string, error)
	IngestDocument(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) models.Result
	AskDocument(ctx context.Context, sess *session.Session, question string) (string, error)
}

// Server implements AssistantServer.
type Server struct {
	sessions  *session.Store
	assistant Assistant
	logger    zerolog.Logger
}

// NewServer creates a server.
func NewServer(sessions *session.Store, a Assistant) *Server {
	return &Server{
		sessions:  sessions,
		assistant: a,
		logger:    logging.WithComponent("grpc"),
	}
}

// Register registers the Assistant service on g.
func Register(g *grpc.Server, sessions *session.Store, a Assistant) *Server {
	s := NewServer(sessions, a)
	g.RegisterService(&ServiceDesc, s)
	return s
}

// Chat sends a message in a session. An empty sessionId opens a new one.
func (s *Server) Chat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionFor(stringField(in, FieldSessionID), true)
	if err != nil {
		return nil, err
	}
	answer, err := s.assistant.Chat(ctx, sess, stringField(in, FieldMessage))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		FieldSessionID: sess.ID,
		FieldAnswer:    answer,
	})
}

// Ingest extracts a base64 encoded document into a session. An empty
// sessionId opens a new one.
func (s *Server) Ingest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(in, FieldName)
	if strings.TrimSpace(name) == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	content, err := base64.StdEncoding.DecodeString(stringField(in, FieldContent))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "content is not base64: %v", err)
	}
	sess, err := s.sessionFor(stringField(in, FieldSessionID), true)
	if err != nil {
		return nil, err
	}

	res := s.assistant.IngestDocument(ctx, sess, models.UploadedArtifact{
		Name: name,
		Body: strings.NewReader(string(content)),
	})
	out := map[string]any{
		FieldSessionID: sess.ID,
		FieldOutcome:   string(res.Outcome),
		FieldChars:     len(res.Text),
		FieldText:      res.Text,
	}
	if res.Err != nil {
		out[FieldError] = res.Err.Error()
	}
	return newStruct(out)
}

// Ask answers a question grounded on the session's document.
func (s *Server) Ask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionFor(stringField(in, FieldSessionID), false)
	if err != nil {
		return nil, err
	}
	answer, err := s.assistant.AskDocument(ctx, sess, stringField(in, FieldQuestion))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		FieldSessionID: sess.ID,
		FieldAnswer:    answer,
	})
}

func (s *Server) sessionFor(id string, create bool) (*session.Session, error) {
	if id == "" {
		if !create {
			return nil, status.Error(codes.InvalidArgument, "sessionId is required")
		}
		sess := s.sessions.Create()
		s.logger.Info().Str("sessionId", sess.ID).Msg("Session opened")
		return sess, nil
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return sess, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, assistant.ErrNoDocument):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func stringField(in *structpb.Struct, key string) string {
	if in == nil {
		return ""
	}
	return in.GetFields()[key].GetStringValue()
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encoding response: %v", err))
	}
	return out, nil
}
