// Package server exposes the reconciliation pipeline over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"go.uber.org/zap"
)

// maxBody bounds a posted document, raw confirmation emails are large.
const maxBody = 16 << 20

// Server handles confirmation documents posted by a mail hook.
type Server struct {
	Processor *orderledger.Processor
	Poster    ledger.Poster // records are not posted when nil
	Token     string        // bearer token required on /orders, none when empty
	Logger    *zap.Logger
}

// Document is the body of POST /orders.
type Document struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// Response is the body of a processed POST /orders.
type Response struct {
	orderledger.Outcome
	Fallback string          `json:"fallback,omitempty"`
	Error    string          `json:"error,omitempty"`
	Postings []ledger.Result `json:"postings,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// NewResponse returns the response reporting out and its postings.
func NewResponse(out orderledger.Outcome, postings []ledger.Result) Response {
	res := Response{Outcome: out, Postings: postings}
	if out.Fallback != nil {
		res.Fallback = out.Fallback.Error()
	}
	if out.Err != nil {
		res.Error = out.Err.Error()
	}
	return res
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// App returns the fiber application serving s.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ordr",
		BodyLimit:             maxBody,
		DisableStartupMessage: true,
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	orders := app.Group("/orders")
	if s.Token != "" {
		orders.Use(keyauth.New(keyauth.Config{
			Validator: func(_ *fiber.Ctx, key string) (bool, error) {
				if subtle.ConstantTimeCompare([]byte(key), []byte(s.Token)) != 1 {
					return false, keyauth.ErrMissingOrMalformedAPIKey
				}
				return true, nil
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
					Code:    "unauthorized",
					Title:   "Unauthorized",
					Message: "a valid bearer token is required",
				})
			},
		}))
	}
	orders.Post("/", s.postOrder)
	return app
}

func (s *Server) postOrder(c *fiber.Ctx) error {
	var doc Document
	if err := c.BodyParser(&doc); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code: "bad_request", Title: "Malformed document", Message: err.Error(),
		})
	}
	if doc.HTML == "" && doc.Text == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code: "bad_request", Title: "Empty document", Message: "html or text is required",
		})
	}

	ctx := c.UserContext()
	out := s.Processor.Process(ctx, doc.HTML, doc.Text)
	log := s.logger().With(zap.String("run", out.ID))
	if out.Err != nil {
		res := ErrorResponse{Code: "unparsable", Title: "Unreadable document", Message: out.Err.Error()}
		var perr *orderledger.ParseError
		if errors.As(out.Err, &perr) {
			res.Missing = perr.Missing
		}
		return c.Status(http.StatusUnprocessableEntity).JSON(res)
	}

	res := NewResponse(out, nil)
	if s.Poster == nil {
		return c.Status(http.StatusOK).JSON(res)
	}

	results, err := ledger.PostAll(ctx, s.Poster, out.Records)
	res.Postings = results
	if err != nil {
		log.Error("cannot post records", zap.Error(err))
		if ledger.NonePosted(results) {
			return c.Status(http.StatusBadGateway).JSON(res)
		}
	}
	return c.Status(http.StatusOK).JSON(res)
}

// ListenAndServe serves s on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	app := s.App()
	errc := make(chan error, 1)
	go func() { errc <- app.Listen(addr) }()
	s.logger().Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.logger().Info("shutting down")
		return app.ShutdownWithContext(context.Background())
	}
}
