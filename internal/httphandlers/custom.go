package httphandlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/httpresponse"
	"github.com/kthendral/optimizehub/internal/platform/apierr"
	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/validator"
)

const maxCustomFileBytes = 1 << 20 // 1 MiB, §6 "fitness_file/config_file ... ≤ 1 MiB"

// Validator is the capability CustomHandler needs from the Code
// Validator (C2).
type Validator func(source string) validator.Verdict

// SandboxRunner is the capability CustomHandler needs from the
// Sandbox Executor (C3).
type SandboxRunner interface {
	Execute(ctx context.Context, req domain.SandboxRequest) (*domain.Result, *domain.JobError)
}

// CustomHandler serves POST /api/optimize/custom (§6): the
// synchronous sandbox entry point. Unlike OptimizeHandler, nothing
// here touches the Job Store — this path is deliberately not
// persisted (§6 "Not persisted in the Job Store").
type CustomHandler struct {
	log     *logger.Logger
	validate Validator
	sandbox SandboxRunner
}

// NewCustomHandler builds a CustomHandler.
func NewCustomHandler(log *logger.Logger, validate Validator, sandbox SandboxRunner) *CustomHandler {
	return &CustomHandler{
		log:     log.With("component", "CustomHandler"),
		validate: validate,
		sandbox: sandbox,
	}
}

// customConfig is the YAML shape of config_file: an algorithm name,
// its parameters, and the problem descriptor minus any fitness
// selector, since the fitness function itself comes from fitness_file.
type customConfig struct {
	Algorithm string         `yaml:"algorithm"`
	Params    domain.Params  `yaml:"params"`
	Problem   problemRequest `yaml:"problem"`
}

func readMultipartFile(c *gin.Context, field, suffix string) (string, *apierr.Error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), err)
	}
	if fh.Size > maxCustomFileBytes {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), errTooLarge(field))
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), suffix) &&
		!(suffix == ".yaml/.yml" && (strings.HasSuffix(strings.ToLower(fh.Filename), ".yaml") || strings.HasSuffix(strings.ToLower(fh.Filename), ".yml"))) {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), errBadSuffix(field, suffix))
	}

	f, err := fh.Open()
	if err != nil {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxCustomFileBytes+1))
	if err != nil {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), err)
	}
	if len(content) > maxCustomFileBytes {
		return "", apierr.New(http.StatusBadRequest, string(domain.KindValidation), errTooLarge(field))
	}
	return string(content), nil
}

// Execute implements POST /api/optimize/custom (§6, §8 scenarios 3-5).
func (h *CustomHandler) Execute(c *gin.Context) {
	source, aerr := readMultipartFile(c, "fitness_file", ".py")
	if aerr != nil {
		respondAPIErr(c, aerr)
		return
	}
	configText, aerr := readMultipartFile(c, "config_file", ".yaml/.yml")
	if aerr != nil {
		respondAPIErr(c, aerr)
		return
	}

	var cfg customConfig
	if err := yaml.Unmarshal([]byte(configText), &cfg); err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusBadRequest, domain.KindValidation, "config_file: malformed yaml: "+err.Error())
		return
	}
	if cfg.Algorithm == "" {
		httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation, "config_file: algorithm is required")
		return
	}

	verdict := h.validate(source)
	if !verdict.OK {
		httpresponse.RespondErrorStatus(c, http.StatusBadRequest, domain.KindValidation, verdict.Reason)
		return
	}

	problem, err := cfg.Problem.toDomainUserSupplied(source)
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation, err.Error())
		return
	}

	result, jerr := h.sandbox.Execute(c.Request.Context(), domain.SandboxRequest{
		Source:    source,
		Algorithm: cfg.Algorithm,
		Problem:   problem,
		Params:    cfg.Params,
	})
	if jerr != nil {
		httpresponse.RespondJobError(c, jerr)
		return
	}
	httpresponse.RespondOK(c, result)
}

func respondAPIErr(c *gin.Context, aerr *apierr.Error) {
	httpresponse.RespondErrorStatus(c, aerr.Status, domain.ErrorKind(aerr.Code), aerr.Error())
}

type fileError struct{ msg string }

func (e *fileError) Error() string { return e.msg }

func errTooLarge(field string) error {
	return &fileError{msg: field + " exceeds the 1 MiB limit"}
}

func errBadSuffix(field, suffix string) error {
	return &fileError{msg: field + " must have suffix " + suffix}
}
