package models

// TaxiInfo identifies a taxi as reported by FindTaxi and tracked once assigned.
type TaxiInfo struct {
	ID          string   `json:"id"`
	CarNumber   string   `json:"car_number"`
	PhoneNumber string   `json:"phone_number"`
	Nickname    string   `json:"nickname"`
	Position    Position `json:"position"`
}
