package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// PaymentHandler serves the student payment endpoints.
type PaymentHandler struct {
	payments *services.PaymentService
}

type createIntentRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid4"`
}

type paymentActionRequest struct {
	PaymentID string `json:"payment_id" validate:"required,uuid4"`
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// POST /api/payments/intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createIntentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.payments.CreateIntent(c.Request.Context(), studentID, body.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"payment":       result.Payment,
		"client_secret": result.ClientSecret,
	})
}

// POST /api/payments/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body paymentActionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	payment, err := h.payments.Confirm(c.Request.Context(), studentID, body.PaymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, payment)
}

// POST /api/payments/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body paymentActionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	payment, err := h.payments.Refund(c.Request.Context(), studentID, body.PaymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, payment)
}

// GET /api/payments
func (h *PaymentHandler) List(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	list, err := h.payments.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}
