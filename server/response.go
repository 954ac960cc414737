package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/readers"
	"github.com/poiesic/docchat/storage"
)

// Envelope codes. The first three digits are the HTTP status.
const (
	codeOK             = 0
	codeBadRequest     = 40001
	codeInvalidInput   = 40002
	codeNotFound       = 40004
	codeRouteNotFound  = 40400
	codeMethodNotAllow = 40500
	codeInternal       = 50001
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    codeOK,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

var badRequestErrors = []error{
	chat.ErrEmptyQuestion,
	core.ErrUnknownBackend,
	core.ErrMissingLocation,
	ingestion.ErrNoUnits,
	ingestion.ErrEmptyCorpus,
	ingestion.ErrUpsertRequiresIDs,
	ingestion.ErrUnknownMode,
	readers.ErrUnsupportedFormat,
	readers.ErrEmptyFile,
	readers.ErrMalformed,
}

// failErr maps err onto a status and writes it. Internal errors are not
// echoed to the client.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound), errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			fail(c, http.StatusBadRequest, codeInvalidInput, err.Error())
			return
		}
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, codeInternal, "internal error")
}
