package service

import (
	"bufio"
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/auth"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/jsonrpc"
	"github.com/spindlework/a2ahost/pkg/tasks"
	"github.com/spindlework/a2ahost/pkg/transport"
)

/*
handleRPC is the JSON-RPC 2.0 binding.  Every outcome is an HTTP 200: the
protocol reports failures inside the envelope, not through HTTP status
codes.  message/stream and tasks/resubscribe take over the response as an
SSE stream once their params validate.
*/
func (srv *Server) handleRPC(ctx fiber.Ctx) error {
	var req jsonrpc.RPCRequest

	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(
			nil, rpcerrors.ErrParseError.WithMessagef("malformed request: %v", err),
		))
	}

	if req.JSONRPC != jsonrpc.Version {
		return ctx.JSON(jsonrpc.NewErrorResponse(
			req.ID, rpcerrors.ErrInvalidRequest.WithMessagef("unsupported jsonrpc version %q", req.JSONRPC),
		))
	}

	if !req.HasID() {
		// Notifications are not part of this protocol; every call returns
		// a correlated result.
		return ctx.JSON(jsonrpc.NewErrorResponse(
			nil, rpcerrors.ErrInvalidParams.WithMessagef("request id is required"),
		))
	}

	identity := auth.IdentityFrom(ctx)

	var (
		result any
		rpcErr *rpcerrors.RpcError
	)

	switch req.Method {
	case "message/send":
		result, rpcErr = tasks.SendMessage(ctx.RequestCtx(), req.Params, srv.pipeline, identity, requestHeaders(ctx))
	case "message/stream":
		return srv.rpcStreamSend(ctx, req)
	case "tasks/get":
		result, rpcErr = tasks.Get(ctx.RequestCtx(), req.Params, srv.pipeline)
	case "tasks/cancel":
		result, rpcErr = tasks.Cancel(ctx.RequestCtx(), req.Params, srv.pipeline)
	case "tasks/resubscribe":
		return srv.rpcResubscribe(ctx, req)
	case "tasks/pushNotificationConfig/set":
		result, rpcErr = tasks.SetPushConfig(ctx.RequestCtx(), req.Params, srv.pipeline, srv.store)
	case "tasks/pushNotificationConfig/get":
		result, rpcErr = tasks.GetPushConfig(ctx.RequestCtx(), req.Params, srv.store)
	default:
		rpcErr = rpcerrors.ErrMethodNotFound.WithMessagef("unknown method %q", req.Method)
	}

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	return ctx.JSON(jsonrpc.NewResponse(req.ID, result))
}

// requestHeaders flattens the request headers into the per-turn header map
// the agent sees, keeping the first value of repeated headers.
func requestHeaders(ctx fiber.Ctx) map[string]string {
	raw := ctx.GetReqHeaders()
	headers := make(map[string]string, len(raw))

	for key, values := range raw {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return headers
}

func (srv *Server) rpcStreamSend(ctx fiber.Ctx, req jsonrpc.RPCRequest) error {
	params, rpcErr := tasks.ParseSendParams(req.Params)

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	task, events, cancel, rpcErr := srv.pipeline.Stream(ctx.RequestCtx(), auth.IdentityFrom(ctx), requestHeaders(ctx), params)

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	return srv.stream(ctx, req.ID, task, events, cancel)
}

func (srv *Server) rpcResubscribe(ctx fiber.Ctx, req jsonrpc.RPCRequest) error {
	params, rpcErr := tasks.ParseTaskIDParams(req.Params)

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	task, events, cancel, rpcErr := srv.pipeline.Resubscribe(ctx.RequestCtx(), params.ID)

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	return srv.stream(ctx, req.ID, task, events, cancel)
}

/*
stream writes the task snapshot and then the live event feed as SSE frames.
With a request id each data payload is a full JSON-RPC envelope; without one
(the REST binding) the bare event is written.  The stream ends after the
final status update, when the task is already terminal, or silently on the
first write error, which means the client hung up.
*/
func (srv *Server) stream(ctx fiber.Ctx, id json.RawMessage, task *a2a.Task, events <-chan any, cancel func()) error {
	metrics := srv.pipeline.Engine().Hub().Metrics()

	ctx.Set(fiber.HeaderContentType, transport.ContentTypeEventStream)
	ctx.Set(fiber.HeaderCacheControl, transport.CacheControlNoStore)
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	terminal := task.Terminal()

	ctx.RequestCtx().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		metrics.StreamOpened()
		defer metrics.StreamClosed()

		envelope := func(payload any) any {
			if id == nil {
				return payload
			}

			return jsonrpc.NewResponse(id, payload)
		}

		sse := transport.NewSSEWriter(w)

		if err := sse.Write(a2a.KindTask, envelope(task)); err != nil {
			return
		}

		if terminal {
			return
		}

		for evt := range events {
			if err := sse.Write(a2a.KindOf(evt), envelope(evt)); err != nil {
				return
			}

			if status, ok := evt.(a2a.TaskStatusUpdateEvent); ok && status.Final {
				return
			}
		}
	}))

	return nil
}
