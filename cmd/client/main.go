package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		species  = flag.String("species", "", "target species")
		ivs      = flag.String("ivs", "", "comma separated traits")
		nature   = flag.String("nature", "", "target nature (optional)")
		invPath  = flag.String("inventory", "", "owned creatures json (optional)")
		prices   = flag.String("prices", "", "extra prices json sent with the request (optional)")
		top      = flag.Int("top", 3, "plans to request")
		waitTime = flag.Duration("wait", time.Minute, "how long to wait for the reply")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)

	req := protocol.PlanMsg{
		Type:            protocol.TypePlan,
		ProtocolVersion: protocol.Version,
		RequestID:       uuid.NewString(),
		Species:         strings.TrimSpace(*species),
		Nature:          strings.TrimSpace(*nature),
		Top:             *top,
	}
	for _, iv := range strings.Split(*ivs, ",") {
		if iv = strings.TrimSpace(iv); iv != "" {
			req.IVs = append(req.IVs, iv)
		}
	}
	if *invPath != "" {
		inv, err := inventory.Load(*invPath)
		if err != nil {
			logger.Fatalf("load inventory: %v", err)
		}
		req.Inventory = inv
	}
	if *prices != "" {
		t, err := market.Load(*prices)
		if err != nil {
			logger.Fatalf("load prices: %v", err)
		}
		req.Prices = t.Entries()
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(req); err != nil {
		logger.Fatalf("send PLAN: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(*waitTime))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		logger.Fatalf("decode: %v", err)
	}
	switch base.Type {
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		logger.Printf("ERROR %s: %s", e.Code, e.Message)
		if len(e.Suggestions) > 0 {
			logger.Printf("did you mean: %s", strings.Join(e.Suggestions, ", "))
		}
		os.Exit(1)
	case protocol.TypePlanResult:
		var res protocol.PlanResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			logger.Fatalf("decode result: %v", err)
		}
		logger.Printf("PLAN_RESULT run_id=%s evaluated=%d returned=%d", res.RunID, res.Evaluated, len(res.Plans))
		if len(res.MissingPrices) > 0 {
			logger.Printf("missing prices: %s", strings.Join(res.MissingPrices, ", "))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res.Plans)
	default:
		logger.Fatalf("unexpected reply type %s", base.Type)
	}
}
