package messaging

import "itinerary-server/internal/model"

// PaymentStatusSucceeded - единственный статус оплаты, который открывает маршрут
const PaymentStatusSucceeded = "succeeded"

// PaymentEvent приходит от платежного сервиса
type PaymentEvent struct {
	ItineraryID string `json:"itineraryId"`
	Status      string `json:"status"`
}

// ItineraryReadyEvent уходит в очередь уведомлений после открытия полного плана
type ItineraryReadyEvent struct {
	ItineraryID string           `json:"itineraryId"`
	Visibility  model.Visibility `json:"visibility"`
}
