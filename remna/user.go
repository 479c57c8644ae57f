package remna

import (
	"encoding/json"
	"time"
)

// RemoteUser — нужные нам поля пользователя панели
type RemoteUser struct {
	UUID                 string     `json:"uuid"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	ExpireAt             *time.Time `json:"expireAt"`
	TrafficLimitBytes    int64      `json:"trafficLimitBytes"`
	HwidDeviceLimit      *int       `json:"hwidDeviceLimit"`
	ActiveInternalSquads []string   `json:"activeInternalSquads"`
	SubscriptionURL      string     `json:"subscriptionUrl"`
}

// ExtractUUID извлекает UUID из ответа панели. Форма успешного ответа
// варьируется: голый объект, {response:...}, {data:...}, {users:[...]},
// массивы под response/data. Формы проверяются в фиксированном порядке,
// возвращается первый найденный UUID или "".
func ExtractUUID(data json.RawMessage) string {
	u, ok := ParseUser(data)
	if !ok {
		return ""
	}
	return u.UUID
}

// ParseUser разбирает пользователя из любой из известных форм ответа.
// Для списков берётся первый элемент («первое совпадение или ничего»).
func ParseUser(data json.RawMessage) (*RemoteUser, bool) {
	if len(data) == 0 {
		return nil, false
	}

	// Голый объект с uuid
	var bare RemoteUser
	if err := json.Unmarshal(data, &bare); err == nil && bare.UUID != "" {
		return &bare, true
	}

	// {response: {...}} или {data: {...}}
	var wrapped struct {
		Response json.RawMessage `json:"response"`
		Data     json.RawMessage `json:"data"`
		Users    json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, false
	}

	for _, inner := range []json.RawMessage{wrapped.Response, wrapped.Data} {
		if len(inner) == 0 {
			continue
		}
		var u RemoteUser
		if err := json.Unmarshal(inner, &u); err == nil && u.UUID != "" {
			return &u, true
		}
	}

	// {users: [...]}, {response: [...]}, {data: [...]}
	for _, inner := range []json.RawMessage{wrapped.Users, wrapped.Response, wrapped.Data} {
		if len(inner) == 0 {
			continue
		}
		var list []RemoteUser
		if err := json.Unmarshal(inner, &list); err == nil && len(list) > 0 && list[0].UUID != "" {
			u := list[0]
			return &u, true
		}
	}

	return nil, false
}
