package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/venuehq/venuehq-backend/api/responses"
	"github.com/venuehq/venuehq-backend/internal/payments"
	"github.com/venuehq/venuehq-backend/internal/tenants"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

const maxPayloadBytes = 1 << 20

// PaymentWebhook ingests payment processor callbacks. The tenant comes from
// the routing slug in the path, never from the payload; the signature is
// verified against that tenant's secret before anything else happens.
func PaymentWebhook(svc payments.Service, resolver tenants.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant resolver unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "tenantSlug"))
		tenant, err := resolver.ResolveBySlug(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		outcome, err := svc.Process(ctx, tenant, payload, r.Header.Get(payments.SignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if outcome.Status == enums.PaymentEventStatusDuplicate {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
