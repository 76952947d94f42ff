package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Extractor is satisfied by *pipeline.Processor.
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (entity.ExtractionDraft, error)
}

type ExtractionService struct {
	proc     Extractor
	maxBytes int
	logger   *slog.Logger
}

func NewExtractionService(proc Extractor, maxBytes int, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, maxBytes: maxBytes, logger: logger}
}

// Extract implements ExtractionServer
func (s *ExtractionService) Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	name := metadataValue(ctx, FileNameMetadata)
	data := in.GetValue()
	if err := common.ValidateUpload(name, data, s.maxBytes); err != nil {
		s.logger.Warn("extract request rejected", "file", name, "error", err)
		return nil, common.InvalidArgumentErrorf("invalid upload %q: %v", name, err)
	}

	draft, err := s.proc.Extract(ctx, name, data)
	switch {
	case errors.Is(err, common.ErrRemoteRateLimited):
		wait, _ := common.RetryAfterFrom(err)
		if wait > 0 {
			_ = grpc.SetHeader(ctx, metadata.Pairs(retryAfterMetadata, strconv.Itoa(int(wait.Seconds()))))
		}
		return nil, rateLimitedError(err, wait)
	case err != nil:
		s.logger.Error("extract failed", "file", name, "error", err)
		return nil, common.InternalError("extraction failed")
	}

	out, err := draftToStruct(draft)
	if err != nil {
		s.logger.Error("encode draft failed", "file", name, "error", err)
		return nil, common.InternalErrorf("encode draft: %v", err)
	}
	return out, nil
}

func rateLimitedError(err error, wait time.Duration) error {
	st := status.New(codes.ResourceExhausted, err.Error())
	if wait <= 0 {
		return st.Err()
	}
	detailed, derr := st.WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(wait)})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func draftToStruct(d entity.ExtractionDraft) (*structpb.Struct, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func metadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
