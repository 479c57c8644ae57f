// Package remna — клиент API панели Remna (RemnaWave).
// Все запросы с Bearer ADMIN_TOKEN. Ошибки транспорта и не-2xx ответы
// не возвращаются как error, а упаковываются в Result — политику
// повторов выбирает вызывающая сторона.
package remna

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

func New(baseURL, adminToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured — заданы ли URL панели и токен. Без них любой вызов
// сразу возвращает ошибку конфигурации, в сеть не ходим.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.adminToken != ""
}

// Result — единый конверт ответа панели: либо Data, либо Err.
// Status — HTTP-статус панели; 0/500 для транспортных ошибок,
// 503 для отсутствующей конфигурации.
type Result struct {
	Data   json.RawMessage
	Err    string
	Status int
}

func (r Result) OK() bool { return r.Err == "" }

func (c *Client) request(method, path string, body any) Result {
	if !c.IsConfigured() {
		return Result{Err: "Remna API not configured", Status: http.StatusServiceUnavailable}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Result{Err: err.Error(), Status: http.StatusInternalServerError}
		}
		reqBody = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return Result{Err: err.Error(), Status: http.StatusInternalServerError}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.adminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: err.Error(), Status: http.StatusInternalServerError}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Err: err.Error(), Status: http.StatusInternalServerError}
	}

	var data json.RawMessage
	if len(raw) > 0 && json.Valid(raw) {
		data = raw
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Err: errorMessage(resp.StatusCode, data, raw), Status: resp.StatusCode}
	}
	return Result{Data: data, Status: resp.StatusCode}
}

func errorMessage(status int, data json.RawMessage, raw []byte) string {
	if status == http.StatusUnauthorized {
		return "Remna API: неверный ADMIN_TOKEN (401)"
	}
	if data != nil {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return e.Message
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg
}

// ===== Пользователи =====

type UsersParams struct {
	Size  int
	Start int
}

// GetUsers — пагинация Remna: size и start (offset)
func (c *Client) GetUsers(params *UsersParams) Result {
	q := url.Values{}
	if params != nil {
		if params.Size > 0 {
			q.Set("size", fmt.Sprintf("%d", params.Size))
		}
		if params.Start > 0 {
			q.Set("start", fmt.Sprintf("%d", params.Start))
		}
	}
	path := "/api/users"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return c.request(http.MethodGet, path, nil)
}

func (c *Client) GetUser(uuid string) Result {
	return c.request(http.MethodGet, "/api/users/"+url.PathEscape(uuid), nil)
}

func (c *Client) GetUserByUsername(username string) Result {
	return c.request(http.MethodGet, "/api/users/by-username/"+url.PathEscape(username), nil)
}

// GetUserByEmail — панель может вернуть массив или объект со списком users
func (c *Client) GetUserByEmail(email string) Result {
	return c.request(http.MethodGet, "/api/users/by-email/"+url.PathEscape(email), nil)
}

func (c *Client) GetUserByTelegramID(telegramID string) Result {
	return c.request(http.MethodGet, "/api/users/by-telegram-id/"+url.PathEscape(telegramID), nil)
}

// UserRequest — атрибуты создания/обновления пользователя панели
type UserRequest struct {
	UUID                 string     `json:"uuid,omitempty"`
	Username             string     `json:"username,omitempty"`
	Email                string     `json:"email,omitempty"`
	TelegramID           string     `json:"telegramId,omitempty"`
	ExpireAt             *time.Time `json:"expireAt,omitempty"`
	TrafficLimitBytes    *int64     `json:"trafficLimitBytes,omitempty"`
	HwidDeviceLimit      *int       `json:"hwidDeviceLimit,omitempty"`
	ActiveInternalSquads []string   `json:"activeInternalSquads,omitempty"`
	Status               string     `json:"status,omitempty"`
}

func (c *Client) CreateUser(body UserRequest) Result {
	return c.request(http.MethodPost, "/api/users", body)
}

func (c *Client) UpdateUser(body UserRequest) Result {
	return c.request(http.MethodPatch, "/api/users", body)
}

// ===== Действия над пользователями =====

func (c *Client) EnableUser(uuid string) Result {
	return c.request(http.MethodPost, "/api/users/"+url.PathEscape(uuid)+"/actions/enable", nil)
}

func (c *Client) DisableUser(uuid string) Result {
	return c.request(http.MethodPost, "/api/users/"+url.PathEscape(uuid)+"/actions/disable", nil)
}

// RevokeUser отзывает подписку пользователя
func (c *Client) RevokeUser(uuid string) Result {
	return c.request(http.MethodPost, "/api/users/"+url.PathEscape(uuid)+"/actions/revoke", struct{}{})
}

func (c *Client) ResetUserTraffic(uuid string) Result {
	return c.request(http.MethodPost, "/api/users/"+url.PathEscape(uuid)+"/actions/reset-traffic", nil)
}

// ===== Ноды =====

func (c *Client) GetNodes() Result {
	return c.request(http.MethodGet, "/api/nodes", nil)
}

func (c *Client) EnableNode(uuid string) Result {
	return c.request(http.MethodPost, "/api/nodes/"+url.PathEscape(uuid)+"/actions/enable", nil)
}

func (c *Client) DisableNode(uuid string) Result {
	return c.request(http.MethodPost, "/api/nodes/"+url.PathEscape(uuid)+"/actions/disable", nil)
}

func (c *Client) RestartNode(uuid string) Result {
	return c.request(http.MethodPost, "/api/nodes/"+url.PathEscape(uuid)+"/actions/restart", nil)
}

// ===== Сквады =====

func (c *Client) GetInternalSquads() Result {
	return c.request(http.MethodGet, "/api/internal-squads", nil)
}

type BulkSquadsRequest struct {
	UUIDs                []string `json:"uuids"`
	ActiveInternalSquads []string `json:"activeInternalSquads"`
}

func (c *Client) BulkUpdateUsersSquads(body BulkSquadsRequest) Result {
	return c.request(http.MethodPost, "/api/users/bulk/update-squads", body)
}

type SquadUsersRequest struct {
	UUIDs []string `json:"uuids"`
}

func (c *Client) AddUsersToInternalSquad(squadUUID string, body SquadUsersRequest) Result {
	return c.request(http.MethodPost, "/api/internal-squads/"+url.PathEscape(squadUUID)+"/bulk-actions/add-users", body)
}

func (c *Client) RemoveUsersFromInternalSquad(squadUUID string, body SquadUsersRequest) Result {
	return c.request(http.MethodDelete, "/api/internal-squads/"+url.PathEscape(squadUUID)+"/bulk-actions/remove-users", body)
}

// ===== Система =====

func (c *Client) GetSystemStats() Result {
	return c.request(http.MethodGet, "/api/system/stats", nil)
}
