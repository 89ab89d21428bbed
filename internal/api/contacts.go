package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/gateway"
	"gsm-dashboard/internal/prompt"
)

// maxImportSize caps uploaded directory files.
const maxImportSize = 4 << 20

type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

type ContactHandler struct {
	Cache     *directory.Cache
	Sync      Syncer
	Confirmer directory.Confirmer
}

func NewContactHandler(cache *directory.Cache, sync Syncer, confirmer directory.Confirmer) *ContactHandler {
	return &ContactHandler{Cache: cache, Sync: sync, Confirmer: confirmer}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.Snapshot())
}

func (h *ContactHandler) GetRecipients(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.Recipients())
}

type ContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Group string `json:"group"`
}

func (r ContactRequest) fields() gateway.Contact {
	return gateway.Contact{Name: r.Name, Phone: r.Phone, Email: r.Email, Group: r.Group}
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.Cache.Add(c.Request.Context(), req.fields())
	if err != nil {
		h.mutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.Cache.Edit(c.Request.Context(), c.Param("id"), req.fields())
	if err != nil {
		h.mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// DeleteContact asks through the confirmer unless the caller already
// confirmed with ?confirm=true. The request stays open until the operator
// answers.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	confirmer := h.Confirmer
	if ok, _ := strconv.ParseBool(c.Query("confirm")); ok {
		confirmer = prompt.Static(true)
	}

	if err := h.Cache.Delete(c.Request.Context(), c.Param("id"), confirmer); err != nil {
		h.mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

// ImportContacts accepts the delimited text either as the raw body or as a
// multipart "file" upload.
func (h *ContactHandler) ImportContacts(c *gin.Context) {
	text, err := importText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Cache.Import(c.Request.Context(), text)
	if err != nil {
		h.mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func importText(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return "", err
		}
		f, err := header.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImportSize))
		return string(data), err
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	return string(data), err
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, h.Cache.Export())
}

// SyncContacts replaces the directory with the external source's copy.
func (h *ContactHandler) SyncContacts(c *gin.Context) {
	if h.Sync == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external directory sync not configured"})
		return
	}
	n, err := h.Sync.Sync(c.Request.Context())
	if err != nil {
		h.mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Contacts synchronized", "count": n})
}

// ReloadContacts drops local state and reads the directory from the modem.
func (h *ContactHandler) ReloadContacts(c *gin.Context) {
	if err := h.Cache.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Contacts reloaded", "count": h.Cache.Len()})
}

func (h *ContactHandler) mutationError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusBadGateway {
		body["diverged"] = h.Cache.Diverged()
	}
	c.JSON(status, body)
}
