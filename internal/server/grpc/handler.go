package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/dmitrijs2005/neurorecall/internal/timex"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return structpb.NewStruct(map[string]any{"status": "OK"})

}

func (s *GRPCServer) GetProfileScores(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	user, ok := userFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	f, err := scores.ParseFilter("", field(req, "test_number"), field(req, "test_time"))
	if err != nil {
		return nil, toStatus(err)
	}

	rows, err := s.results.Profile(ctx, user.ID, f)
	if err != nil {
		s.logger.Error(ctx, "profile scores", "user_id", user.ID, "error", err.Error())
		return nil, toStatus(err)
	}

	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowFields(r))
	}
	return structpb.NewStruct(map[string]any{
		"user": map[string]any{
			"id":            user.ID,
			"username":      user.UserName,
			"email":         user.Email,
			"profile_photo": optional(user.ProfilePhoto),
		},
		"scores": out,
	})

}

func (s *GRPCServer) ListResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	user, ok := userFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if !auth.IsAdmin(user) {
		return nil, status.Error(codes.PermissionDenied, "admin access required")
	}

	f, err := scores.ParseFilter(field(req, "username"), field(req, "test_number"), field(req, "test_time"))
	if err != nil {
		return nil, toStatus(err)
	}

	rows, err := s.results.AdminResults(ctx, f)
	if err != nil {
		s.logger.Error(ctx, "list results", "error", err.Error())
		return nil, toStatus(err)
	}

	out := make([]any, 0, len(rows))
	for _, r := range rows {
		m := rowFields(r)
		m["username"] = r.UserName
		if r.Age != nil {
			m["age"] = *r.Age
		} else {
			m["age"] = nil
		}
		m["sex"] = optional(r.Sex)
		out = append(out, m)
	}
	return structpb.NewStruct(map[string]any{"results": out})

}

// field reads a string or numeric request field as text.
func field(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

func rowFields(r approval.Row) map[string]any {
	var total any = common.NotApplicable
	if r.Total.Valid {
		total = r.Total.Value
	}
	return map[string]any{
		"test_number":  r.TestNumber,
		"round_number": r.RoundNumber,
		"score":        r.Score.Score,
		"test_time":    timex.FormatISO(r.TestTime),
		"approved":     r.Label(),
		"total_score":  total,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// toStatus maps service errors to gRPC statuses without leaking internals.
func toStatus(err error) error {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Field+": "+ve.Message)
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
