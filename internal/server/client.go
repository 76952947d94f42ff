package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// ExtractionClient calls a remote labs.v1.ExtractionService.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

// Extract sends one document and decodes the returned draft. A
// ResourceExhausted status is translated back into a
// *common.RateLimitedError.
func (c *ExtractionClient) Extract(ctx context.Context, fileName string, data []byte) (entity.ExtractionDraft, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, FileNameMetadata, fileName)
	if id := common.RequestIDFromContext(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadata, id)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractFullMethod, wrapperspb.Bytes(data), out); err != nil {
		return entity.ExtractionDraft{}, fromStatus(err)
	}

	raw, err := out.MarshalJSON()
	if err != nil {
		return entity.ExtractionDraft{}, fmt.Errorf("encode response: %w", err)
	}
	var draft entity.ExtractionDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return entity.ExtractionDraft{}, fmt.Errorf("decode draft: %w", err)
	}
	return draft, nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.ResourceExhausted {
		return err
	}
	rl := &common.RateLimitedError{}
	for _, d := range st.Details() {
		if ri, ok := d.(*errdetails.RetryInfo); ok && ri.GetRetryDelay() != nil {
			rl.RetryAfter = ri.GetRetryDelay().AsDuration().Round(time.Second)
		}
	}
	return rl
}
