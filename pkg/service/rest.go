package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/auth"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/tasks"
)

/*
restStatus maps protocol error codes onto HTTP status codes for the REST
binding.  The JSON-RPC binding never uses this; there every failure is a
200 with an error envelope.
*/
func restStatus(rpcErr *rpcerrors.RpcError) int {
	switch rpcErr.Code {
	case rpcerrors.ErrTaskNotFound.Code, rpcerrors.ErrMethodNotFound.Code:
		return fiber.StatusNotFound
	case rpcerrors.ErrInvalidRequest.Code,
		rpcerrors.ErrInvalidParams.Code,
		rpcerrors.ErrParseError.Code,
		rpcerrors.ErrTaskNotCancelable.Code,
		rpcerrors.ErrUnsupportedOperation.Code,
		rpcerrors.ErrPushNotificationNotSupported.Code:
		return fiber.StatusBadRequest
	case rpcerrors.ErrContentTypeNotSupported.Code:
		return fiber.StatusUnprocessableEntity
	}

	return fiber.StatusInternalServerError
}

func restError(ctx fiber.Ctx, rpcErr *rpcerrors.RpcError) error {
	return ctx.Status(restStatus(rpcErr)).JSON(rpcErr)
}

// handleRestSend is POST {prefix}/v1/message:send with MessageSendParams as
// the request body.
func (srv *Server) handleRestSend(ctx fiber.Ctx) error {
	var params a2a.MessageSendParams

	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		return restError(ctx, rpcerrors.ErrParseError.WithMessagef("malformed body: %v", err))
	}

	task, rpcErr := srv.pipeline.Send(ctx.RequestCtx(), auth.IdentityFrom(ctx), requestHeaders(ctx), params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(task)
}

// handleRestStream is POST {prefix}/v1/message:stream, answering with bare
// protocol events over SSE.
func (srv *Server) handleRestStream(ctx fiber.Ctx) error {
	var params a2a.MessageSendParams

	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		return restError(ctx, rpcerrors.ErrParseError.WithMessagef("malformed body: %v", err))
	}

	task, events, cancel, rpcErr := srv.pipeline.Stream(ctx.RequestCtx(), auth.IdentityFrom(ctx), requestHeaders(ctx), params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return srv.stream(ctx, nil, task, events, cancel)
}

/*
handleRestTaskGet serves GET {prefix}/v1/tasks/:id and, when the path
parameter carries the :subscribe verb, the SSE resubscribe binding.  Fiber
cannot route on the verb suffix, so it is parsed out of the parameter here.
*/
func (srv *Server) handleRestTaskGet(ctx fiber.Ctx) error {
	id, verb := splitVerb(ctx.Params("id"))

	switch verb {
	case "":
		return srv.restTaskSnapshot(ctx, id)
	case "subscribe":
		return srv.restResubscribe(ctx, id)
	}

	return restError(ctx, rpcerrors.ErrMethodNotFound.WithMessagef("unknown verb %q", verb))
}

// handleRestTaskPost serves POST {prefix}/v1/tasks/:id:cancel.
func (srv *Server) handleRestTaskPost(ctx fiber.Ctx) error {
	id, verb := splitVerb(ctx.Params("id"))

	if verb != "cancel" {
		return restError(ctx, rpcerrors.ErrMethodNotFound.WithMessagef("unknown verb %q", verb))
	}

	task, rpcErr := srv.pipeline.Cancel(ctx.RequestCtx(), id)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(task)
}

func (srv *Server) restTaskSnapshot(ctx fiber.Ctx, id string) error {
	task, rpcErr := srv.pipeline.Engine().Get(ctx.RequestCtx(), id)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	if raw := ctx.Query("historyLength"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 0 {
			return restError(ctx, rpcerrors.ErrInvalidParams.WithMessagef("historyLength must be a non-negative integer"))
		}

		task = tasks.TrimHistory(task, n)
	}

	// metadata=false strips the metadata bag from the snapshot.
	if raw := ctx.Query("metadata"); raw != "" {
		if include, err := strconv.ParseBool(raw); err == nil && !include {
			task.Metadata = nil
		}
	}

	return ctx.JSON(task)
}

func (srv *Server) restResubscribe(ctx fiber.Ctx, id string) error {
	task, events, cancel, rpcErr := srv.pipeline.Resubscribe(ctx.RequestCtx(), id)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return srv.stream(ctx, nil, task, events, cancel)
}

// handleRestPushSet is POST {prefix}/v1/tasks/:id/pushNotificationConfigs.
func (srv *Server) handleRestPushSet(ctx fiber.Ctx) error {
	var config a2a.TaskPushNotificationConfig

	if err := json.Unmarshal(ctx.Body(), &config); err != nil {
		return restError(ctx, rpcerrors.ErrParseError.WithMessagef("malformed body: %v", err))
	}

	config.TaskID = ctx.Params("id")

	raw, err := json.Marshal(config)

	if err != nil {
		return restError(ctx, rpcerrors.ErrInternal.WithMessagef("%v", err))
	}

	result, rpcErr := tasks.SetPushConfig(ctx.RequestCtx(), raw, srv.pipeline, srv.store)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(result)
}

/*
handleRestPushGet serves both the collection and the single-config route.
Without a configId the whole list for the task is returned.
*/
func (srv *Server) handleRestPushGet(ctx fiber.Ctx) error {
	taskID := ctx.Params("id")

	if configID := ctx.Params("configId"); configID != "" {
		config, rpcErr := srv.store.GetPushConfig(ctx.RequestCtx(), taskID, configID)

		if rpcErr != nil {
			return restError(ctx, rpcErr)
		}

		return ctx.JSON(config)
	}

	configs, rpcErr := srv.store.GetPushConfigs(ctx.RequestCtx(), taskID)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(configs)
}

// splitVerb separates the optional :verb suffix from a path parameter, so
// "tid:cancel" becomes ("tid", "cancel").
func splitVerb(param string) (string, string) {
	if idx := strings.LastIndex(param, ":"); idx >= 0 {
		return param[:idx], param[idx+1:]
	}

	return param, ""
}
