package api

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"tumorexpr/adapters/excel"
	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/region"
	"tumorexpr/domain/run"
	apperrors "tumorexpr/internal/errors"

	"github.com/gin-gonic/gin"
)

func handleRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": region.All()})
}

// handleCreateAnalysis runs the pipeline on uploaded metadata and expression
// tables. Form fields override the configured parameters; batch=true runs
// every gene row.
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	meta, err := s.readUpload(c, "metadata")
	if err != nil {
		respondError(c, err)
		return
	}
	expr, err := s.readUpload(c, "expression")
	if err != nil {
		respondError(c, err)
		return
	}

	params, err := parametersFromForm(c, s.runner.Parameters())
	if err != nil {
		respondError(c, err)
		return
	}
	runner, err := s.runner.WithParameters(params)
	if err != nil {
		respondError(c, err)
		return
	}

	if batch, _ := strconv.ParseBool(c.PostForm("batch")); batch {
		items, err := runner.RunBatch(c.Request.Context(), meta, expr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
		return
	}

	rep, err := runner.Run(c.Request.Context(), meta, expr)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[API] Run %s completed for gene %s", rep.ID(), rep.Gene)
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	if s.repository == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := s.repository.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	rep, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

// handleGetReport renders a stored run as an HTML page
func (s *Server) handleGetReport(c *gin.Context) {
	rep, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.renderer.HTML(rep))
}

func (s *Server) loadReport(c *gin.Context) (*run.Report, bool) {
	if s.repository == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
		return nil, false
	}
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.InvalidInput(err.Error()))
		return nil, false
	}
	rep, err := s.repository.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return rep, true
}

func (s *Server) readUpload(c *gin.Context, field string) (*dataset.RawTable, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("multipart file %q is required", field))
	}
	if limit := int64(s.opts.MaxUploadMB) << 20; header.Size > limit {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s exceeds the %d MB limit", header.Filename, s.opts.MaxUploadMB))
	}
	return readMultipart(header, s.opts.Sheet)
}

func readMultipart(header *multipart.FileHeader, sheet string) (*dataset.RawTable, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.IOError(header.Filename, err)
	}
	defer file.Close()
	return excel.ReadFrom(file, header.Filename, excel.DetectFileType(header.Filename), sheet)
}

// parametersFromForm applies optional form overrides to the defaults
func parametersFromForm(c *gin.Context, params run.Parameters) (run.Parameters, error) {
	if v := c.PostForm("metadata_columns"); v != "" {
		var cols []string
		for _, col := range strings.Split(v, ",") {
			if col = strings.TrimSpace(col); col != "" {
				cols = append(cols, col)
			}
		}
		params.MetadataColumns = cols
	}
	if v := c.PostForm("group_column"); v != "" {
		params.GroupColumn = v
	}
	if v := c.PostForm("time_column"); v != "" {
		params.TimeColumn = v
	}
	if v := c.PostForm("gene"); v != "" {
		params.GeneLabel = v
	}
	if v := c.PostForm("alpha"); v != "" {
		alpha, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, apperrors.InvalidInput(fmt.Sprintf("alpha %q is not a number", v))
		}
		params.Alpha = alpha
	}
	return params, nil
}

// statusFor maps an error code onto an HTTP status
func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeSchemaError, apperrors.CodeMissingColumn, apperrors.CodeIOError:
		return http.StatusBadRequest
	case apperrors.CodeInsufficientGroups, apperrors.CodeInsufficientData,
		apperrors.CodeDegenerateStratification, apperrors.CodeConvergence:
		return http.StatusUnprocessableEntity
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := apperrors.Classify(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
