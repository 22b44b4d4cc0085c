package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Posts a fabricated gateway notification to a locally running server.
// Useful for exercising the reconciliation path without real T-Bank traffic.
func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:3000", "server base URL")
		orderId   = flag.String("order", "order-local-1", "gateway order id")
		paymentId = flag.String("payment", fmt.Sprintf("%d", time.Now().UnixMilli()), "payment id")
		status    = flag.String("status", "CONFIRMED", "payment status")
		rebillId  = flag.String("rebill", "", "rebill id (empty for a plain payment)")
		amount    = flag.Int64("amount", 39000, "amount in kopecks")
		repeat    = flag.Int("repeat", 1, "number of identical deliveries to send")
	)
	flag.Parse()

	payload := map[string]interface{}{
		"TerminalKey": "LocalTerminal",
		"OrderId":     *orderId,
		"PaymentId":   *paymentId,
		"Status":      *status,
		"Success":     *status == "CONFIRMED" || *status == "AUTHORIZED",
		"Amount":      *amount,
	}
	if *rebillId != "" {
		payload["RebillId"] = *rebillId
		payload["CardId"] = "local-card-1"
		payload["Pan"] = "430000******0777"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	endpoint := *baseURL + "/api/payment/tbank/notification"
	for i := 0; i < *repeat; i++ {
		resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("post notification: %v", err)
		}
		ack, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("delivery %d: %d %s", i+1, resp.StatusCode, string(ack))
	}
}
