package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/responses"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/payos"
)

// Payloads above this size are not legitimate gateway notifications.
const maxWebhookBody = 1 << 20

type PayOSWebhookService interface {
	HandleWebhook(ctx context.Context, event *payos.WebhookEvent) error
}

type webhookVerifier interface {
	VerifyWebhook(payload []byte) (*payos.WebhookEvent, error)
}

// PayOSWebhook verifies and reconciles gateway payment notifications.
// Replays and unknown correlation ids are acknowledged with 200 so the
// gateway stops retrying.
func PayOSWebhook(svc PayOSWebhookService, verifier webhookVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := verifier.VerifyWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.HandleWebhook(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
