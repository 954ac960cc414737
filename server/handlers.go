package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/messenger"
	"github.com/poiesic/docchat/readers"
)

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, codeBadRequest, "no files uploaded")
		return
	}

	backend, err := core.ParseBackend(c.PostForm("db_type"))
	if err != nil {
		failErr(c, err)
		return
	}
	mode, err := ingestion.ParseMode(c.PostForm("mode"))
	if err != nil {
		failErr(c, err)
		return
	}

	req := &ingestion.Request{
		Backend: backend,
		Location: core.Location{
			Index:      strings.TrimSpace(c.PostForm("index_name")),
			Namespace:  strings.TrimSpace(c.PostForm("namespace")),
			Database:   strings.TrimSpace(c.PostForm("db_name")),
			Collection: strings.TrimSpace(c.PostForm("collection_name")),
		},
		Mode:      mode,
		SessionID: strings.TrimSpace(c.PostForm("session_id")),
		SourceID:  strings.TrimSpace(c.PostForm("source_id")),
	}
	for _, fh := range files {
		units, err := readUpload(fh)
		if err != nil {
			failErr(c, err)
			return
		}
		req.Units = append(req.Units, units...)
		req.Files = append(req.Files, fh.Filename)
	}

	result, err := s.ingester.Ingest(c.Request.Context(), req)
	if err != nil {
		s.logger.Warn("upload failed", "files", req.Files, "err", err)
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"session_id":       result.SessionID,
		"collection":       result.Collection,
		"records":          result.Records,
		"text_records":     result.TextRecords,
		"image_records":    result.ImageRecords,
		"failed_chunks":    result.FailedChunks,
		"failed_images":    result.FailedImages,
		"duplicate_chunks": result.DuplicateChunks,
	})
}

func readUpload(fh *multipart.FileHeader) ([]ingestion.Unit, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", readers.ErrMalformed, fh.Filename, err)
	}
	defer f.Close()
	return readers.Read(fh.Filename, f)
}

type queryReq struct {
	SessionID string `json:"session_id" form:"session_id"`
	Question  string `json:"question" form:"question"`
	Emotion   string `json:"emotion" form:"emotion"`
	UserID    string `json:"user_id" form:"user_id"`
}

func (s *Server) query(c *gin.Context) {
	var req queryReq
	// Query parameters are accepted for clients of the original form API.
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid query parameters")
		return
	}
	if c.Request.ContentLength != 0 && strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, codeBadRequest, "invalid json")
			return
		}
	}
	if strings.TrimSpace(req.SessionID) == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "session_id is required")
		return
	}

	answer, err := s.asker.Ask(c.Request.Context(), chat.Question{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Text:      req.Question,
		Emotion:   req.Emotion,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"session_id": answer.SessionID,
		"response":   answer.Text,
		"keywords":   answer.Keywords,
		"degraded":   answer.Degraded,
	})
}

func (s *Server) listSessions(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	sessions, err := s.sessions.List(c.Request.Context(), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"sessions": sessions})
}

func (s *Server) verifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	if s.verifyToken != "" && c.Query("hub.verify_token") == s.verifyToken && (mode == "" || mode == "subscribe") {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	s.logger.Warn("webhook verification rejected", "mode", mode)
	c.String(http.StatusForbidden, "Invalid verification token")
}

func (s *Server) receiveWebhook(c *gin.Context) {
	var payload messenger.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Object != "" && payload.Object != "page" {
		c.String(http.StatusNotFound, "unsupported object")
		return
	}
	s.webhook.HandlePayload(c.Request.Context(), &payload)
	c.String(http.StatusOK, "EVENT_RECEIVED")
}
