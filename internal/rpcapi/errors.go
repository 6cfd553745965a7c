package rpcapi

import (
	"github.com/novafn/novafn/internal/apierr"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// toStatusError renders an apierr.Error as a gRPC status, attaching the
// same typed detail payloads the REST front-end renders inline as the
// `error.errors[]` array, carried here as trailing detail-bin metadata per
// spec §4.6/§7.
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	apiErr := apierr.As(err)
	st := status.New(apiErr.Kind.GRPCCode(), apiErr.Message)

	var details []proto.Message
	if apiErr.BadRequest != nil {
		var violations []*errdetails.BadRequest_FieldViolation
		for _, v := range apiErr.BadRequest.FieldViolations {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{
				Field: v.Field, Description: v.Description,
			})
		}
		details = append(details, &errdetails.BadRequest{FieldViolations: violations})
	}
	if apiErr.DebugInfo != nil {
		details = append(details, &errdetails.DebugInfo{
			StackEntries: apiErr.DebugInfo.StackEntries, Detail: apiErr.DebugInfo.Detail,
		})
	}
	if apiErr.ResourceInfo != nil {
		details = append(details, &errdetails.ResourceInfo{
			ResourceType: apiErr.ResourceInfo.ResourceType,
			ResourceName: apiErr.ResourceInfo.ResourceName,
			Description:  apiErr.ResourceInfo.Description,
		})
	}

	if len(details) == 0 {
		return st.Err()
	}
	withDetails, detailErr := st.WithDetails(details...)
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
