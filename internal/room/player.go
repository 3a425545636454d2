package room

import "fmt"

// Player is an identity owned by a Room for its lifetime there. The
// connection itself is managed by the transport layer.
type Player struct {
	ID      string
	Name    string
	Country string
	IsBot   bool
}

// PlayerInfo is the serializable roster entry sent in lobby events.
type PlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Picture string `json:"picture"`
	IsBot   bool   `json:"isBot"`
}

func (p *Player) Info() PlayerInfo {
	return PlayerInfo{
		ID:      p.ID,
		Name:    p.Name,
		Country: p.Country,
		Picture: fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", p.ID),
		IsBot:   p.IsBot,
	}
}
