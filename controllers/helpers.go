package controllers

import (
	"encoding/json"
	"log"
	"net/http"
)

// respondJSON сериализует payload и отправляет ответ с указанным статусом.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Не отправляем http.Error здесь, так как заголовки уже отправлены
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// respondError отправляет JSON с сообщением об ошибке.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	log.Printf("HTTP Error %d: %s", statusCode, message)
	respondJSON(w, statusCode, map[string]string{"error": message})
}
