package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/model"
)

// SubscribeFunc streams the user's list until ctx is done.
type SubscribeFunc func(ctx context.Context, userID int64) (<-chan []model.GroceryItem, error)

// HandleWebSocket returns an HTTP handler that upgrades authenticated
// connections and runs them as Hub clients. subscribe may be nil.
func HandleWebSocket(hub *Hub, subscribe SubscribeFunc, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		var snapshots <-chan []model.GroceryItem
		if subscribe != nil {
			snapshots, err = subscribe(ctx, userID)
			if err != nil {
				logger.Error("subscribe", "user_id", userID, "error", err)
				conn.Close(ws.StatusInternalError, "subscribe failed")
				return
			}
		}

		NewClient(hub, conn, userID).Run(ctx, snapshots)
	}
}
