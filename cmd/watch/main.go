package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"blackflag.space/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/events", "event stream url")
		kinds = flag.String("kinds", "", "comma-separated event kinds (default: all)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMsg(*kinds)); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range render(msg) {
			logger.Print(line)
		}
	}
}

func subscribeMsg(kinds string) protocol.SubscribeMsg {
	m := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version}
	for _, k := range strings.Split(kinds, ",") {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			m.Kinds = append(m.Kinds, k)
		}
	}
	return m
}

// render turns one server message into printable lines; unknown messages yield nothing.
func render(msg []byte) []string {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil
		}
		return []string{fmt.Sprintf("WELCOME world=%s tick=%d tick_rate=%d seed=%d planets=%d bases=%d routes=%d",
			w.WorldID, w.Tick, w.WorldParams.TickRateHz, w.WorldParams.Seed,
			w.WorldParams.Planets, w.WorldParams.Bases, w.WorldParams.Routes)}
	case protocol.TypeEvents:
		var em protocol.EventsMsg
		if err := json.Unmarshal(msg, &em); err != nil {
			return nil
		}
		out := make([]string, 0, len(em.Events))
		for _, ev := range em.Events {
			out = append(out, fmt.Sprintf("tick=%d %s", em.Tick, ev.String()))
		}
		return out
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil
		}
		return []string{fmt.Sprintf("ERROR %s: %s", e.Code, e.Message)}
	}
	return nil
}
