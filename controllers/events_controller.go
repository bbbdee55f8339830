package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"salon_server_go/data"
)

// EventsController стримит realtime-события хранилища клиентам через
// server-sent events. Клиентский кэш сливает их со своим состоянием;
// пропущенные события добирает периодическое полное обновление.
type EventsController struct {
	Store *data.Store
}

// Stream обрабатывает GET /api/events.
func (c *EventsController) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Стриминг не поддерживается сервером.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, events := c.Store.Feed().Subscribe()
	defer c.Store.Feed().Unsubscribe(subID)
	log.Printf("EventsController: подписчик %d подключился (%s)", subID, r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			log.Printf("EventsController: подписчик %d отключился", subID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("EventsController: ошибка сериализации события: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
