package httpchain

import "encoding/json"

type anchorResponse struct {
	TxID          string `json:"tx_id"`
	TransactionID string `json:"transaction_id"`
}

func txIDFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed anchorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.TxID != "" {
		return parsed.TxID
	}
	return parsed.TransactionID
}
