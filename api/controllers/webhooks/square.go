package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/decorlyhq/decorly-backend/api/responses"
	squarewebhook "github.com/decorlyhq/decorly-backend/internal/webhooks/square"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

const squareSignatureHeader = "x-square-hmacsha256-signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.Event) error
}

type squareClient interface {
	SigningSecret() string
}

// SquareWebhook verifies and applies Square payment events. The signature
// covers the public notification URL plus the raw body, so the URL is
// rebuilt from the forwarding headers the ingress sets.
func SquareWebhook(svc SquareWebhookService, client squareClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "square client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(squareSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square signature missing"))
			return
		}

		if !squarewebhook.VerifySignature(client.SigningSecret(), notificationURL(r), payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "square signature rejected"))
			return
		}

		var event squarewebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func notificationURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + r.URL.Path
}
