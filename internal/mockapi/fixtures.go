package mockapi

import "strconv"

type symbol struct {
	Name   string
	Active bool
}

type exchange struct {
	ID      int
	Name    string
	Active  bool
	Symbols []symbol
}

func (e exchange) stats() map[string]any {
	active := 0
	for _, s := range e.Symbols {
		if s.Active {
			active++
		}
	}
	return map[string]any{
		"exchange_id":    e.ID,
		"symbols_total":  len(e.Symbols),
		"symbols_active": active,
	}
}

type user struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

var exchanges = []exchange{
	{ID: 1, Name: "BINANCE", Active: true, Symbols: []symbol{
		{"BTCUSDT", true}, {"ETHUSDT", true}, {"LUNAUSDT", false},
	}},
	{ID: 2, Name: "BYBIT", Active: true, Symbols: []symbol{
		{"BTCUSDT", true}, {"SOLUSDT", true},
	}},
	{ID: 3, Name: "FTX", Active: false, Symbols: []symbol{
		{"BTCUSD", false},
	}},
}

var users = []user{
	{ID: 1, Username: "trader", Role: "admin", Status: "active"},
	{ID: 2, Username: "alice", Role: "user", Status: "active"},
	{ID: 3, Username: "bob", Role: "user", Status: "blocked"},
	{ID: 4, Username: "carol", Role: "user", Status: "active"},
}

func findExchange(raw string) (exchange, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return exchange{}, false
	}
	for _, e := range exchanges {
		if e.ID == id {
			return e, true
		}
	}
	return exchange{}, false
}
