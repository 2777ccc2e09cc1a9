package s3

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/docvault"
)

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("upstream failure"),
		},
		RequestID: "req-1",
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", &types.NoSuchKey{}, docvault.ErrNotFound},
		{"head not found", &types.NotFound{}, docvault.ErrNotFound},
		{"no such bucket", &types.NoSuchBucket{}, docvault.ErrConfiguration},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, docvault.ErrAccessDenied},
		{"bad signature", &smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}, docvault.ErrAccessDenied},
		{"precondition", &smithy.GenericAPIError{Code: "PreconditionFailed"}, docvault.ErrConflict},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, docvault.ErrTransient},
		{"status 404", responseError(http.StatusNotFound), docvault.ErrNotFound},
		{"status 403", responseError(http.StatusForbidden), docvault.ErrAccessDenied},
		{"status 412", responseError(http.StatusPreconditionFailed), docvault.ErrConflict},
		{"status 429", responseError(http.StatusTooManyRequests), docvault.ErrTransient},
		{"status 503", responseError(http.StatusServiceUnavailable), docvault.ErrTransient},
		{"max attempts", &retry.MaxAttemptsError{Attempt: 3, Err: errors.New("gave up")}, docvault.ErrTransient},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, docvault.ErrTransient},
		{"deadline", context.DeadlineExceeded, docvault.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	cause := errors.New("something odd")
	err := classify("get", cause)

	assert.ErrorIs(t, err, cause)
	for _, kind := range []error{docvault.ErrNotFound, docvault.ErrTransient, docvault.ErrAccessDenied, docvault.ErrConflict} {
		assert.NotErrorIs(t, err, kind)
	}
	assert.Equal(t, "get: something odd", err.Error())
}

func TestClassify_CanceledIsNotTransient(t *testing.T) {
	err := classify("put", context.Canceled)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, docvault.ErrTransient)
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify("ping", nil))
}

func TestETagQuoting(t *testing.T) {
	assert.Equal(t, "abc", trimETag(`"abc"`))
	assert.Equal(t, `"abc"`, quoteETag("abc"))
	assert.Equal(t, `"abc"`, quoteETag(`"abc"`))
}

func TestOpen_RequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorIs(t, err, docvault.ErrConfiguration)
}
