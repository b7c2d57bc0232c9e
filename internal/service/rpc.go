// Package service implements the Connect RPC surface.
//
// Messages are google.protobuf.Struct values, so the services work with both
// the Connect JSON and binary codecs without generated stubs. Field names are
// snake_case.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/reminder"
	"github.com/mmynk/settleup/internal/storage"
)

const (
	AuthServiceName     = "settleup.v1.AuthService"
	GroupServiceName    = "settleup.v1.GroupService"
	ReminderServiceName = "settleup.v1.ReminderService"
)

const (
	RegisterProcedure              = "/" + AuthServiceName + "/Register"
	LoginProcedure                 = "/" + AuthServiceName + "/Login"
	RegisterDeviceTokenProcedure   = "/" + AuthServiceName + "/RegisterDeviceToken"
	UnregisterDeviceTokenProcedure = "/" + AuthServiceName + "/UnregisterDeviceToken"

	CreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	AddMembersProcedure       = "/" + GroupServiceName + "/AddMembers"
	AddExpenseProcedure       = "/" + GroupServiceName + "/AddExpense"
	RecordSettlementProcedure = "/" + GroupServiceName + "/RecordSettlement"
	GetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"

	SendGroupReminderProcedure = "/" + ReminderServiceName + "/SendGroupReminder"
)

// errInvalidArgument marks malformed request fields.
var errInvalidArgument = errors.New("invalid argument")

type (
	request  = connect.Request[structpb.Struct]
	response = connect.Response[structpb.Struct]
)

// Services are the handlers mounted by NewHandler.
type Services struct {
	Auth      *AuthService
	Groups    *GroupService
	Reminders *ReminderService
}

// NewHandler mounts every procedure on a mux. Register and Login are public;
// everything else requires a bearer token issued by jwtManager.
func NewHandler(svcs Services, jwtManager *auth.JWTManager, logger *slog.Logger) http.Handler {
	logging := middleware.LoggingInterceptor(logger)
	public := connect.WithInterceptors(logging)
	authed := connect.WithInterceptors(logging, middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	handle := func(procedure string, fn func(context.Context, *request) (*response, error), opt connect.HandlerOption) {
		mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opt))
	}

	handle(RegisterProcedure, svcs.Auth.Register, public)
	handle(LoginProcedure, svcs.Auth.Login, public)
	handle(RegisterDeviceTokenProcedure, svcs.Auth.RegisterDeviceToken, authed)
	handle(UnregisterDeviceTokenProcedure, svcs.Auth.UnregisterDeviceToken, authed)

	handle(CreateGroupProcedure, svcs.Groups.CreateGroup, authed)
	handle(GetGroupProcedure, svcs.Groups.GetGroup, authed)
	handle(AddMembersProcedure, svcs.Groups.AddMembers, authed)
	handle(AddExpenseProcedure, svcs.Groups.AddExpense, authed)
	handle(RecordSettlementProcedure, svcs.Groups.RecordSettlement, authed)
	handle(GetGroupBalancesProcedure, svcs.Groups.GetGroupBalances, authed)

	handle(SendGroupReminderProcedure, svcs.Reminders.SendGroupReminder, authed)
	return mux
}

// rpcError maps domain errors to Connect codes.
func rpcError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, reminder.ErrUnauthenticated):
		code = connect.CodeUnauthenticated
	case errors.Is(err, reminder.ErrNotMember):
		code = connect.CodePermissionDenied
	case errors.Is(err, reminder.ErrGroupNotFound), errors.Is(err, storage.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, reminder.ErrInvalidArgument), errors.Is(err, errInvalidArgument):
		code = connect.CodeInvalidArgument
	case errors.Is(err, calculator.ErrInvalidExpense):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, reminder.ErrDispatch):
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidArgument, fmt.Sprintf(format, args...))
}

func getString(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func getStrings(msg *structpb.Struct, key string) ([]string, error) {
	list := msg.GetFields()[key].GetListValue()
	out := make([]string, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, invalidArgument("%s[%d] must be a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// getCents reads a non-negative whole number of cents.
func getCents(msg *structpb.Struct, key string) (int64, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return 0, invalidArgument("%s is required", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, invalidArgument("%s must be a number", key)
	}
	f := n.NumberValue
	if f < 0 || f != math.Trunc(f) || f > 1<<53 {
		return 0, invalidArgument("%s must be a non-negative whole number of cents", key)
	}
	return int64(f), nil
}

func reply(fields map[string]any) (*response, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build response: %w", err))
	}
	return connect.NewResponse(msg), nil
}

func anyList(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
