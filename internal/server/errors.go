package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	disputedomain "github.com/influmarkt/influmarkt/internal/dispute/domain"
	invoicedomain "github.com/influmarkt/influmarkt/internal/invoice/domain"
	mailerdomain "github.com/influmarkt/influmarkt/internal/mailer/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	paymentdomain "github.com/influmarkt/influmarkt/internal/payment/domain"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orderdomain.ErrInvalidPrice),
		errors.Is(err, orderdomain.ErrInvalidDelivery),
		errors.Is(err, orderdomain.ErrInvalidItems),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, disputedomain.ErrInvalidMessage),
		errors.Is(err, payoutdomain.ErrInvalidDocument),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrUnknownEventType),
		errors.Is(err, profiledomain.ErrInvalidKind),
		errors.Is(err, profiledomain.ErrInvalidName),
		errors.Is(err, profiledomain.ErrInvalidEmail),
		errors.Is(err, profiledomain.ErrInvalidLocale):
		return true
	}
	return false
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, orderdomain.ErrNotParticipant),
		errors.Is(err, orderdomain.ErrInvalidBuyer),
		errors.Is(err, orderdomain.ErrInvalidInfluencer),
		errors.Is(err, disputedomain.ErrNotSolver),
		errors.Is(err, payoutdomain.ErrNotClaimer),
		errors.Is(err, payoutdomain.ErrNotInfluencer):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, disputedomain.ErrNotFound),
		errors.Is(err, payoutdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrIntentNotFound),
		errors.Is(err, paymentdomain.ErrUnknownProvider),
		errors.Is(err, mailerdomain.ErrUnknownRecipient),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, paymentdomain.ErrPaymentExists),
		errors.Is(err, disputedomain.ErrAlreadyClaimed),
		errors.Is(err, disputedomain.ErrNotClaimed),
		errors.Is(err, payoutdomain.ErrAlreadyClaimed),
		errors.Is(err, payoutdomain.ErrNotClaimed),
		errors.Is(err, payoutdomain.ErrNoEligiblePayouts),
		errors.Is(err, payoutdomain.ErrNoPayoutAccount):
		return true
	}
	return false
}
