package tbank

// Amounts on the wire are in minor currency units (kopecks).

type ReceiptItem struct {
	Name          string `json:"Name"`
	Price         int64  `json:"Price"`
	Quantity      int    `json:"Quantity"`
	Amount        int64  `json:"Amount"`
	Tax           string `json:"Tax"`
	PaymentMethod string `json:"PaymentMethod"`
	PaymentObject string `json:"PaymentObject"`
}

type Receipt struct {
	Email    string        `json:"Email,omitempty"`
	Phone    string        `json:"Phone,omitempty"`
	Taxation string        `json:"Taxation"`
	Items    []ReceiptItem `json:"Items"`
}

type InitRequest struct {
	Amount      int64    `json:"Amount"`
	OrderID     string   `json:"OrderId"`
	Description string   `json:"Description,omitempty"`
	CustomerKey string   `json:"CustomerKey,omitempty"`
	Recurrent   string   `json:"Recurrent,omitempty"`
	Receipt     *Receipt `json:"Receipt,omitempty"`
}

type InitResponse struct {
	Success    bool   `json:"Success"`
	ErrorCode  string `json:"ErrorCode"`
	Message    string `json:"Message"`
	Details    string `json:"Details"`
	Status     string `json:"Status"`
	PaymentID  string `json:"PaymentId"`
	OrderID    string `json:"OrderId"`
	PaymentURL string `json:"PaymentURL"`
	Amount     int64  `json:"Amount"`
}

type ChargeResponse struct {
	Success   bool   `json:"Success"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Details   string `json:"Details"`
	Status    string `json:"Status"`
	PaymentID string `json:"PaymentId"`
	OrderID   string `json:"OrderId"`
	Amount    int64  `json:"Amount"`
}

type StateResponse struct {
	Success   bool   `json:"Success"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Status    string `json:"Status"`
	PaymentID string `json:"PaymentId"`
	OrderID   string `json:"OrderId"`
	RebillID  string `json:"RebillId"`
	CardID    string `json:"CardId"`
	Amount    int64  `json:"Amount"`
}

// Terminal payment states the reconciler cares about.
const (
	StatusConfirmed  = "CONFIRMED"
	StatusAuthorized = "AUTHORIZED"
	StatusRejected   = "REJECTED"
	StatusRefunded   = "REFUNDED"
	StatusCanceled   = "CANCELED"
)
