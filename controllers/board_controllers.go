package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/dock-scheduler/board"
)

type BoardController struct {
	Hub      *board.Hub
	upgrader websocket.Upgrader
}

func NewBoardController(hub *board.Hub, allowOrigin string) *BoardController {
	return &BoardController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == "" || allowOrigin == "*" || origin == "" || origin == allowOrigin
			},
		},
	}
}

// Subscribe -> endpoint WebSocket untuk layar dock board
func (bc *BoardController) Subscribe(c *gin.Context) {
	ws, err := bc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	bc.Hub.Register(ws, c.ClientIP())

	// client board hanya menerima; baca untuk mendeteksi disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	bc.Hub.Unregister(ws)
}
