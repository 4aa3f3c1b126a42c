// internal/realtime/websocket.go

package realtime

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wandermatch/wandermatch-backend/internal/auth"
	"github.com/wandermatch/wandermatch-backend/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Configure origin checking in production
		return true
	},
}

// ServeWS upgrades the request and joins the authenticated user to the
// connection registry. The auth middleware has already bound the identity;
// the upgrade itself is the "join".
func (h *Hub) ServeWS(bufferSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		username, _ := auth.GetUsernameFromContext(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for user %d (%s): %v", userID, username, err)
			return
		}
		log.Printf("User %d (%s) joined the realtime channel", userID, username)

		client := NewClient(h, conn, userID, uuid.NewString(), bufferSize)
		select {
		case h.register <- client:
			client.Start()
		case <-h.ctx.Done():
			conn.Close()
		}
	}
}
