// Package server exposes STL inspection and conversion over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/chazu/stlkit/pkg/config"
	"github.com/chazu/stlkit/pkg/kernel"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/samber/lo"
)

// ContentType is the media type of STL responses.
const ContentType = "application/sla"

// BodyLimit caps uploaded meshes.
const BodyLimit = 64 << 20

// Server is the STL web service.
type Server struct {
	addr     string
	settings *config.Settings
	debug    bool
	mu       sync.Mutex
}

// NewServer creates a server listening on port. A nil settings means
// config.Default().
func NewServer(port int, settings *config.Settings) *Server {
	if settings == nil {
		settings = config.Default()
	}
	return &Server{
		addr:     fmt.Sprintf(":%d", port),
		settings: settings,
	}
}

// SetDebug enables request logging.
func (s *Server) SetDebug(enabled bool) {
	s.debug = enabled
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	log.Printf("stl service listening on %s", s.addr)
	return s.App().Listen(s.addr)
}

// App builds the fiber application with every route installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "stlkit",
		BodyLimit: BodyLimit,
	})
	app.Use(cors.New())
	if s.debug {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	api := app.Group("/api")
	api.Get("/config", s.getConfig)
	api.Post("/config", s.setConfig)
	api.Post("/info", s.info)
	api.Post("/convert", s.convert)
	api.Post("/mesh", s.indexed)
	api.Post("/run", s.run)
	return app
}

func (s *Server) current() *config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Server) getConfig(c *fiber.Ctx) error {
	return c.JSON(s.current())
}

// setConfig replaces the settings for subsequent requests. The settings
// file on disk is left alone.
func (s *Server) setConfig(c *fiber.Ctx) error {
	cfg := config.Default()
	if err := c.BodyParser(cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := cfg.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.mu.Lock()
	s.settings = cfg
	s.mu.Unlock()
	return c.JSON(cfg)
}

// decode reads the request body as STL using the mode query parameter.
func (s *Server) decode(c *fiber.Ctx) ([]*mesh.Mesh, error) {
	mode, err := stl.ParseMode(c.Query("mode"))
	if err != nil {
		return nil, err
	}
	opts, err := s.current().MeshOptions()
	if err != nil {
		return nil, err
	}
	body := c.Body()
	if len(body) == 0 {
		return nil, stl.ErrEmpty
	}
	meshes, err := stl.ReadAll(bytes.NewReader(body), mode, opts)
	if err != nil {
		return nil, err
	}
	if len(meshes) == 0 {
		return nil, stl.ErrEmpty
	}
	return meshes, nil
}

// fail reports err with a JSON body: 400 for bad input, 500 otherwise.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if IsClientError(err) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// POST /api/info?mode=auto
func (s *Server) info(c *fiber.Ctx) error {
	meshes, err := s.decode(c)
	if err != nil {
		return fail(c, err)
	}
	summaries := lo.Map(meshes, func(m *mesh.Mesh, _ int) mesh.Summary { return m.Summarize() })
	if len(summaries) == 1 {
		return c.JSON(summaries[0])
	}
	return c.JSON(summaries)
}

// POST /api/convert?to=ascii&name=part
func (s *Server) convert(c *fiber.Ctx) error {
	out := stl.Binary
	if to := c.Query("to"); to != "" {
		mode, err := stl.ParseMode(to)
		if err != nil {
			return fail(c, err)
		}
		if mode != stl.Automatic {
			out = mode
		}
	} else if mode, err := s.current().OutputMode(); err == nil && mode != stl.Automatic {
		out = mode
	}

	meshes, err := s.decode(c)
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	for _, m := range meshes {
		if err := stl.Write(&buf, m, stl.SaveOptions{Mode: out, Name: c.Query("name")}); err != nil {
			return fail(c, err)
		}
	}
	c.Set(fiber.HeaderContentType, ContentType)
	return c.Send(buf.Bytes())
}

// POST /api/mesh returns the first solid as an indexed mesh for viewers.
func (s *Server) indexed(c *fiber.Ctx) error {
	meshes, err := s.decode(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(kernel.FromMesh(meshes[0]))
}

// POST /api/run evaluates the body as a mesh script in a scratch
// directory and returns a summary of every mesh it defines. Evaluate stops
// an abandoned script from writing before it returns, so the directory can
// be removed even after a timeout.
func (s *Server) run(c *fiber.Ctx) error {
	dir, err := os.MkdirTemp("", "stlkit-run-")
	if err != nil {
		return fail(c, err)
	}
	defer os.RemoveAll(dir)

	eng, err := s.current().Engine(dir)
	if err != nil {
		return fail(c, err)
	}
	res, evalErrs, err := eng.Evaluate(string(c.Body()))
	if err != nil {
		return fail(c, err)
	}
	if len(evalErrs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"errors": evalErrs})
	}
	return c.JSON(fiber.Map{
		"meshes": lo.Map(res.Meshes, func(m *mesh.Mesh, _ int) mesh.Summary { return m.Summarize() }),
	})
}

// IsClientError reports whether err stems from bad input rather than the
// service.
func IsClientError(err error) bool {
	var pe *stl.ParseError
	return errors.As(err, &pe) ||
		errors.Is(err, stl.ErrMalformed) ||
		errors.Is(err, stl.ErrTruncated) ||
		errors.Is(err, stl.ErrTooManyTriangles) ||
		errors.Is(err, stl.ErrSizeMismatch) ||
		errors.Is(err, stl.ErrEmpty) ||
		errors.Is(err, stl.ErrInvalidMode)
}
