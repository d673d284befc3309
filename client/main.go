// Command client is a line-oriented websocket client for poking a running
// coordinator by hand.
//
//	client --account acct-1 --secret change-me
//	> create {"password":""}
//	> join {"password":""} 123456
//	> lock_role {"role":"xu_yuan","color":"green"}
//	> view_me
package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/relicroom/identity"
	"github.com/wfunc/relicroom/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// parseLine splits "op [json-args] [room-code]".
func parseLine(line string) (op string, args json.RawMessage, code string) {
	line = strings.TrimSpace(line)
	op, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "{") {
		end := strings.LastIndex(rest, "}")
		args = json.RawMessage(rest[:end+1])
		rest = strings.TrimSpace(rest[end+1:])
	}
	return op, args, rest
}

func main() {
	addr := pflag.String("addr", "localhost:8080", "coordinator host:port")
	account := pflag.String("account", "acct-1", "account id to act as")
	secret := pflag.String("secret", "", "HS256 secret; empty sends the account header instead")
	pflag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	header := http.Header{}
	if *secret != "" {
		token, err := identity.NewJWTResolver(*secret).Sign(*account, 24*time.Hour)
		if err != nil {
			log.Fatalf("Sign token: %v", err)
		}
		header.Set("Authorization", "Bearer "+token)
	} else {
		header.Set(identity.HeaderAccountID, *account)
	}
	log.Printf("Connecting to %s as %s", u.String(), *account)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	gameIDs := make(chan string, 8)

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			if packet.MsgID == network.MsgTypeReply {
				var rep struct {
					Result struct {
						GameID string `json:"game_id"`
					} `json:"result"`
				}
				if json.Unmarshal(packet.Data, &rep) == nil && rep.Result.GameID != "" {
					gameIDs <- rep.Result.GameID
				}
			}
			log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- reader.Text()
		}
	}()

	gameID := ""
	seq := 0
	for {
		select {
		case <-done:
			return
		case id := <-gameIDs:
			gameID = id
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line := <-lines:
			op, args, code := parseLine(line)
			if op == "" {
				continue
			}
			seq++
			req := network.Request{ID: strconv.Itoa(seq), Op: op, Args: args, RoomCode: code}
			if code == "" {
				req.GameID = gameID
			}
			data, _ := json.Marshal(req)
			if err := send(c, network.MsgTypeRequest, data); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", data)
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
