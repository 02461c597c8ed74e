package billing

import (
	"context"
	"time"

	"spactl/internal/api"
	"spactl/internal/models"
)

// SubscriptionStore is the part of the client store checkout confirmation writes to
type SubscriptionStore interface {
	SetSubscription(sub *models.Subscription)
	SetSubscriptionLoading(loading bool)
	SetSubscriptionError(msg *string)
}

const confirmFailedMessage = "Failed to verify subscription"

// ConfirmCheckout waits delay (DefaultConfirmDelay when zero) and then
// records the backend's subscription status in st.
//
// If ctx ends during the wait nothing is requested and st is untouched.
// If it ends during the request, only the loading flag is reset.
func (s *Service) ConfirmCheckout(ctx context.Context, st SubscriptionStore, sessionID string, delay time.Duration) (*models.Subscription, error) {
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	st.SetSubscriptionLoading(true)

	status, err := s.GetSubscriptionStatus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			st.SetSubscriptionLoading(false)
			return nil, err
		}
		msg := confirmFailedMessage
		if apiErr, ok := api.AsAPIError(err); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		st.SetSubscriptionError(&msg)
		return nil, err
	}

	now := s.now().UTC()
	end := now
	if status.CurrentPeriodEnd != nil {
		end = *status.CurrentPeriodEnd
	}
	id := sessionID
	if id == "" {
		id = fallbackSubscriptionID
	}

	sub := &models.Subscription{
		ID:                 id,
		PlanName:           status.PlanName,
		IsActive:           status.IsActive,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
	}
	st.SetSubscription(sub)
	st.SetSubscriptionLoading(false)

	return sub, nil
}
