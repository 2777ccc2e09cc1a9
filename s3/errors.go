package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/docvault"
)

// classify maps SDK errors onto the docvault error kinds. Unknown errors are
// wrapped unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if kind := kindOf(err); kind != nil {
		return fmt.Errorf("%s: %w: %w", op, kind, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func kindOf(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	var (
		noSuchKey    *types.NoSuchKey
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return docvault.ErrNotFound
	case errors.As(err, &noSuchBucket):
		return docvault.ErrConfiguration
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return docvault.ErrNotFound
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "InvalidToken", "AllAccessDisabled", "AccountProblem":
			return docvault.ErrAccessDenied
		case "PreconditionFailed", "ConditionalRequestConflict":
			return docvault.ErrConflict
		case "SlowDown", "RequestTimeout", "ServiceUnavailable", "InternalError",
			"Throttling", "ThrottlingException", "RequestLimitExceeded":
			return docvault.ErrTransient
		case "NoSuchBucket":
			return docvault.ErrConfiguration
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code == http.StatusNotFound:
			return docvault.ErrNotFound
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return docvault.ErrAccessDenied
		case code == http.StatusPreconditionFailed, code == http.StatusConflict:
			return docvault.ErrConflict
		case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
			return docvault.ErrTransient
		}
	}

	var maxAttempts *retry.MaxAttemptsError
	if errors.As(err, &maxAttempts) {
		return docvault.ErrTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return docvault.ErrTransient
	}

	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, docvault.ErrNotFound)
}
