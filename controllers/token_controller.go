package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"salon_server_go/auth"
)

// TokenController выдает сервисные токены клиентским устройствам.
// Выдача защищена ключом развертывания: устройство получает токен один раз
// при провижининге и дальше только предъявляет его. Флоу
// регистрации/логина пользователей здесь нет.
type TokenController struct {
	ProvisionKey string
	TokenTTL     time.Duration
}

// TokenRequest — тело POST /api/Service/token.
type TokenRequest struct {
	DeviceID string `json:"device_id"`
}

// TokenResponse — выданный токен и срок его действия.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken обрабатывает POST /api/Service/token.
func (c *TokenController) IssueToken(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Provision-Key") != c.ProvisionKey {
		log.Printf("IssueToken: неверный ключ развертывания от %s", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Неверный ключ развертывания.")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.DeviceID) == "" {
		respondError(w, http.StatusBadRequest, "device_id обязателен.")
		return
	}

	token, expiresAt, err := auth.GenerateToken(req.DeviceID, c.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось выдать токен: "+err.Error())
		return
	}
	log.Printf("IssueToken: выдан токен устройству %s до %s", req.DeviceID, expiresAt.Format(time.RFC3339))
	respondJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}
