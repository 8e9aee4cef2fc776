/**
 * @description
 * This file contains the core application service for the ComfortCan API. The
 * `Service` struct orchestrates the operations that go beyond a single store
 * call: login (credential exchange plus rate limiting), the settlement
 * workflow (settlement.go), dog photo uploads, and the business summary
 * report.
 *
 * @dependencies
 * - context, fmt, log, path, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - github.com/shopspring/decimal: For exact money arithmetic.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/authclient, pkg/rabbitmq, pkg/storageclient: For external service communication.
 */

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
	"github.com/dvegaa1/comfortcan-erp/pkg/rabbitmq"
	"github.com/dvegaa1/comfortcan-erp/pkg/storageclient"
)

// DefaultPaymentMethod is assumed when a settlement request omits one.
const DefaultPaymentMethod = "Efectivo"

// LoginRateLimiter is the contract for the distributed login throttle.
type LoginRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic of the API.
type Service struct {
	repo          store.Repository
	auth          *authclient.Client
	storage       *storageclient.Client
	events        rabbitmq.Publisher
	eventExchange string

	loginLimiter        LoginRateLimiter
	loginLimitPerMinute int
}

// NewService creates a new service instance.
func NewService(repo store.Repository, auth *authclient.Client, storage *storageclient.Client, events rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:          repo,
		auth:          auth,
		storage:       storage,
		events:        events,
		eventExchange: eventExchange,
	}
}

// SetLoginRateLimiter enables login throttling. A nil limiter or non-positive
// limit leaves logins unthrottled.
func (s *Service) SetLoginRateLimiter(limiter LoginRateLimiter, limitPerMinute int) {
	s.loginLimiter = limiter
	s.loginLimitPerMinute = limitPerMinute
}

// Login exchanges an email/password pair for a session with the identity
// service. The service never mints or inspects tokens itself.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, authclient.ErrInvalidCredentials
	}

	if s.loginLimiter != nil && s.loginLimitPerMinute > 0 {
		count, retryAfter, err := s.loginLimiter.ConsumeRateLimit(ctx, "login", email, s.loginLimitPerMinute, time.Minute)
		if err != nil {
			// A broken limiter must not lock everyone out.
			log.Printf("level=warn component=app op=login msg=\"rate limiter unavailable; allowing attempt\" err=%v", err)
		} else if count > s.loginLimitPerMinute {
			return nil, &RateLimitedError{RetryAfterSeconds: retryAfter}
		}
	}

	session, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		AccessToken: session.AccessToken,
		UserID:      session.User.ID,
		Email:       session.User.Email,
	}, nil
}

// Logout revokes the caller's session.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	return s.auth.SignOut(ctx, accessToken)
}

// AttachDogPhoto uploads a photo to the object store and records its public
// URL on the dog.
func (s *Service) AttachDogPhoto(ctx context.Context, dogID uuid.UUID, filename, contentType string, file io.Reader) (*domain.Dog, error) {
	if _, err := s.repo.FindDogByID(ctx, dogID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectPath := fmt.Sprintf("perros/%s/%s%s", dogID, uuid.New(), ext)

	photoURL, err := s.storage.Upload(ctx, objectPath, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	dog, err := s.repo.SetDogPhotoURL(ctx, dogID, photoURL)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=app op=attach_dog_photo dog_id=%s url=%s", dogID, photoURL)
	return dog, nil
}

// SummaryReport aggregates the business overview: active owners and dogs,
// walks and income for the current month, and the outstanding unpaid total.
func (s *Service) SummaryReport(ctx context.Context) (*domain.SummaryReport, error) {
	owners, err := s.repo.CountActiveOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count owners: %w", err)
	}
	dogs, err := s.repo.CountActiveDogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count dogs: %w", err)
	}

	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthWalks, err := s.repo.ListWalksSince(ctx, firstOfMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to list walks for current month: %w", err)
	}
	income := decimal.Zero
	for _, w := range monthWalks {
		income = income.Add(w.Price)
	}

	unpaid, err := s.repo.ListUnpaidWalks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid walks: %w", err)
	}
	outstanding := decimal.Zero
	for _, w := range unpaid {
		outstanding = outstanding.Add(w.Price)
	}

	return &domain.SummaryReport{
		TotalOwners:     owners,
		TotalDogs:       dogs,
		WalksThisMonth:  len(monthWalks),
		IncomeThisMonth: income,
		UnpaidWalks:     len(unpaid),
		UnpaidAmount:    outstanding,
	}, nil
}

// publishEvent sends a charge lifecycle event; failures are logged, never returned.
func (s *Service) publishEvent(ctx context.Context, routingKey string, event rabbitmq.ChargeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=app msg=\"event publish failed\" routing_key=%s charge_id=%s err=%v", routingKey, event.ChargeID, err)
	}
}
