package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/service"
)

// dashboardParams are the query string parameters shared by every
// dashboard endpoint.
type dashboardParams struct {
	Period string `query:"period" validate:"omitempty,oneof=today yesterday 7d 30d month custom"`
	Start  string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `query:"end" validate:"omitempty,datetime=2006-01-02"`
	TZ     string `query:"tz" validate:"omitempty,timezone"`
}

func (s *Server) parseQuery(c *fiber.Ctx) (service.Query, error) {
	claims := c.Locals("claims").(*service.JWTClaims)
	q := service.Query{
		AccountID: claims.AccountID,
		UserID:    claims.UserID,
		IsAdmin:   claims.IsAdmin(),
	}

	var p dashboardParams
	if err := c.QueryParser(&p); err != nil {
		return q, domain.NewValidationError("invalid query parameters")
	}
	if err := s.validator.Struct(&p); err != nil {
		return q, domain.NewValidationError(describeValidation(err))
	}

	token, err := period.ParseToken(p.Period)
	if err != nil {
		return q, err
	}
	q.Token = token

	if p.TZ != "" {
		loc, err := time.LoadLocation(p.TZ)
		if err != nil {
			return q, domain.NewValidationError("invalid tz")
		}
		q.Location = loc
	}

	if token == period.Custom {
		loc := q.Location
		if loc == nil {
			loc = time.UTC
		}
		custom := &period.CustomDates{}
		if p.Start != "" {
			start, err := period.ParseDate(p.Start, loc)
			if err != nil {
				return q, err
			}
			custom.Start = &start
		}
		if p.End != "" {
			end, err := period.ParseDate(p.End, loc)
			if err != nil {
				return q, err
			}
			custom.End = &end
		}
		q.Custom = custom
	}
	return q, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return "invalid " + strings.Join(fields, ", ")
}

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic message.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case domain.ErrCodeNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": de.Message})
		case domain.ErrCodeValidation:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": de.Message})
		case domain.ErrCodeUnauthorized:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": de.Message})
		}
	}
	s.log.Error("request failed", "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal error"})
}

// section runs fn with the parsed query and wraps its result under key.
func section[T any](s *Server, c *fiber.Ctx, key string, fn func(context.Context, service.Query) (T, error)) error {
	q, err := s.parseQuery(c)
	if err != nil {
		return s.respondError(c, err)
	}
	out, err := fn(c.Context(), q)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, key: out})
}

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	return section(s, c, "dashboard", s.services.Dashboard.Dashboard)
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	return section(s, c, "summary", s.services.Dashboard.Summary)
}

func (s *Server) handleSources(c *fiber.Ctx) error {
	return section(s, c, "sources", s.services.Dashboard.Sources)
}

func (s *Server) handleAgents(c *fiber.Ctx) error {
	return section(s, c, "agents", s.services.Dashboard.Agents)
}

func (s *Server) handleDaily(c *fiber.Ctx) error {
	return section(s, c, "daily", s.services.Dashboard.Daily)
}

func (s *Server) handleToday(c *fiber.Ctx) error {
	return section(s, c, "today", s.services.Dashboard.Today)
}

func (s *Server) handleResponseTimes(c *fiber.Ctx) error {
	return section(s, c, "response_times", s.services.Dashboard.ResponseTimes)
}

func (s *Server) handleGetPanels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"panels":  s.services.Dashboard.Panels().Enabled(),
	})
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	accountID := c.Locals("account_id").(uuid.UUID)
	if err := s.services.Dashboard.Refresh(c.Context(), accountID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleLeadAttribution(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid lead id"})
	}
	q, err := s.parseQuery(c)
	if err != nil {
		return s.respondError(c, err)
	}

	detail, err := s.services.Dashboard.LeadAttribution(c.Context(), q, leadID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "attribution": detail})
}
