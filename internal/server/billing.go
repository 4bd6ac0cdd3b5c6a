package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/tenantly/internal/billing/domain"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"go.uber.org/zap"
)

const stripeSignatureHeader = "Stripe-Signature"

type checkoutRequest struct {
	PriceID string `form:"priceId" json:"price_id"`
}

func (s *Server) ListPricing(c *gin.Context) {
	ctx := c.Request.Context()

	prices, err := s.billingSvc.ListPrices(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	products, err := s.billingSvc.ListProducts(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, billingdomain.Pricing{Prices: prices, Products: products})
}

// CreateCheckout starts a Stripe checkout for the signed-in member. Callers
// without a membership are sent to sign-up with the checkout intent kept.
func (s *Server) CreateCheckout(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	checkout := billingdomain.CheckoutRequest{PriceID: strings.TrimSpace(req.PriceID)}
	membership, err := s.orgSvc.LoadMembership(c.Request.Context(), sess.IdentityID)
	switch {
	case err == nil:
		checkout.Organization = &membership.Organization
		checkout.Profile = &membership.Profile
	case errors.Is(err, organizationdomain.ErrProfileNotFound),
		errors.Is(err, organizationdomain.ErrOrganizationNotFound):
	default:
		AbortWithError(c, err)
		return
	}

	redirect, err := s.billingSvc.CreateCheckoutSession(c.Request.Context(), checkout)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, redirect)
}

// CompleteCheckout is the Stripe success redirect target.
func (s *Server) CompleteCheckout(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.Redirect(http.StatusFound, "/pricing")
		return
	}

	redirect, err := s.billingSvc.CompleteCheckout(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirect.URL)
}

func (s *Server) CreatePortal(c *gin.Context) {
	membership, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	redirect, err := s.billingSvc.CreateCustomerPortalSession(c.Request.Context(), &membership.Organization)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, redirect)
}

func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader(stripeSignatureHeader)
	if strings.TrimSpace(signature) == "" {
		AbortWithError(c, billingdomain.ErrInvalidSignature)
		return
	}

	if err := s.billingSvc.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		if !errors.Is(err, billingdomain.ErrInvalidSignature) {
			s.log.Error("webhook processing failed", zap.Error(err))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
