package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/notebox/pkg/core"
)

// RPC error codes.
const (
	CodeInvalidParams = "INVALID_PARAMS"
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeReadOnly      = "READ_ONLY"
	CodeInternal      = "INTERNAL_ERROR"
)

// RPCRequest is the envelope accepted at /rpc.
type RPCRequest struct {
	Method string         `json:"method" cbor:"method"`
	Params map[string]any `json:"params,omitempty" cbor:"params,omitempty"`
}

// RPCResponse is the envelope returned from /rpc.
type RPCResponse struct {
	OK      bool      `json:"ok" cbor:"ok"`
	Payload any       `json:"payload,omitempty" cbor:"payload,omitempty"`
	Error   *RPCError `json:"error,omitempty" cbor:"error,omitempty"`
}

// RPCError describes a failed call.
type RPCError struct {
	Code    string `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

func (e *RPCError) Error() string {
	return e.Code + ": " + e.Message
}

// ListPayload is the result of notes.list.
type ListPayload struct {
	Files []core.NoteInfo `json:"files" cbor:"files"`
}

// DeletePayload is the result of notes.delete.
type DeletePayload struct {
	Deleted bool `json:"deleted" cbor:"deleted"`
}

type rpcMethod func(ctx context.Context, root string, params map[string]any) (any, error)

func (s *Server) methods() map[string]rpcMethod {
	return map[string]rpcMethod{
		"notes.list":   s.rpcList,
		"notes.read":   s.rpcRead,
		"notes.write":  s.rpcWrite,
		"notes.create": s.rpcCreate,
		"notes.delete": s.rpcDelete,
	}
}

// handleRPC decodes the envelope and dispatches it. Malformed envelopes
// answer 400; every dispatched call answers 200 with ok set accordingly.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req RPCRequest
	reader := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := requestCodec(r).Decode(reader, &req); err != nil {
		s.respond(w, r, http.StatusBadRequest, rpcFailure(CodeInvalidParams, "invalid request body: "+err.Error()))
		return
	}

	method, ok := s.methods()[req.Method]
	if !ok {
		s.respond(w, r, http.StatusOK, rpcFailure(CodeInvalidParams, fmt.Sprintf("unknown method: %q", req.Method)))
		return
	}

	root, err := s.root(r)
	if err != nil {
		s.respond(w, r, http.StatusOK, s.rpcError(req.Method, err))
		return
	}

	payload, err := method(r.Context(), root, req.Params)
	if err != nil {
		s.respond(w, r, http.StatusOK, s.rpcError(req.Method, err))
		return
	}
	s.respond(w, r, http.StatusOK, RPCResponse{OK: true, Payload: payload})
}

func (s *Server) rpcList(ctx context.Context, root string, _ map[string]any) (any, error) {
	notes, err := s.service.ListNotes(ctx, root)
	if err != nil {
		return nil, err
	}
	return ListPayload{Files: notes}, nil
}

func (s *Server) rpcRead(ctx context.Context, root string, params map[string]any) (any, error) {
	p, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return s.service.GetNote(ctx, root, p)
}

func (s *Server) rpcWrite(ctx context.Context, root string, params map[string]any) (any, error) {
	p, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "content must be a string"}
	}
	return s.service.SaveNote(ctx, root, p, content)
}

func (s *Server) rpcCreate(ctx context.Context, root string, params map[string]any) (any, error) {
	p, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return s.service.CreateNote(ctx, root, p)
}

func (s *Server) rpcDelete(ctx context.Context, root string, params map[string]any) (any, error) {
	p, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	deleted, err := s.service.DeleteNote(ctx, root, p)
	if err != nil {
		return nil, err
	}
	return DeletePayload{Deleted: deleted}, nil
}

func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", &RPCError{Code: CodeInvalidParams, Message: name + " must be a non-empty string"}
	}
	return v, nil
}

func rpcFailure(code, message string) RPCResponse {
	return RPCResponse{Error: &RPCError{Code: code, Message: message}}
}

// rpcError maps an error onto an envelope. Internal faults are logged
// and their detail withheld from the caller.
func (s *Server) rpcError(method string, err error) RPCResponse {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return RPCResponse{Error: rpcErr}
	}

	code := CodeInternal
	switch httpStatus(err) {
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusBadRequest:
		code = CodeInvalidParams
	case http.StatusConflict:
		code = CodeAlreadyExists
	case http.StatusForbidden:
		code = CodeReadOnly
	}

	msg := err.Error()
	if code == CodeInternal {
		s.logger.Error("rpc call failed", "method", method, "error", err)
		msg = "internal error"
	}
	return rpcFailure(code, msg)
}
