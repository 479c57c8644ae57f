package remna

import (
	"encoding/json"
	"testing"
)

// TestExtractUUID тестирует разбор всех известных форм ответа панели
func TestExtractUUID(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedUUID string
		description  string
	}{
		{
			name:         "BareObject",
			body:         `{"uuid":"u-1","username":"alpha"}`,
			expectedUUID: "u-1",
			description:  "Голый объект пользователя",
		},
		{
			name:         "ResponseWrapper",
			body:         `{"response":{"uuid":"u-2"}}`,
			expectedUUID: "u-2",
			description:  "Объект под response",
		},
		{
			name:         "DataWrapper",
			body:         `{"data":{"uuid":"u-3"}}`,
			expectedUUID: "u-3",
			description:  "Объект под data",
		},
		{
			name:         "UsersArray",
			body:         `{"users":[{"uuid":"u-4"},{"uuid":"u-5"}]}`,
			expectedUUID: "u-4",
			description:  "Из массива users берётся первый элемент",
		},
		{
			name:         "ResponseArray",
			body:         `{"response":[{"uuid":"u-6"}]}`,
			expectedUUID: "u-6",
			description:  "Массив под response",
		},
		{
			name:         "DataArray",
			body:         `{"data":[{"uuid":"u-7"}]}`,
			expectedUUID: "u-7",
			description:  "Массив под data",
		},
		{
			name:         "ResponseBeatsData",
			body:         `{"response":{"uuid":"u-r"},"data":{"uuid":"u-d"}}`,
			expectedUUID: "u-r",
			description:  "response имеет приоритет над data",
		},
		{
			name:         "EmptyObject",
			body:         `{}`,
			expectedUUID: "",
			description:  "Пустой объект — UUID нет",
		},
		{
			name:         "EmptyUsersArray",
			body:         `{"users":[]}`,
			expectedUUID: "",
			description:  "Пустой список — совпадений нет",
		},
		{
			name:         "NoPayload",
			body:         "",
			expectedUUID: "",
			description:  "Пустое тело",
		},
		{
			name:         "UUIDMissingInObject",
			body:         `{"response":{"username":"beta"}}`,
			expectedUUID: "",
			description:  "Объект без uuid не считается пользователем",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractUUID(json.RawMessage(tt.body))
			if got != tt.expectedUUID {
				t.Errorf("ExtractUUID() = %q, ожидалось %q. %s", got, tt.expectedUUID, tt.description)
			}
		})
	}
}

// TestParseUserFields проверяет, что вместе с UUID разбираются и остальные поля
func TestParseUserFields(t *testing.T) {
	body := `{"response":{"uuid":"u-9","username":"gamma","trafficLimitBytes":1073741824,"hwidDeviceLimit":3,"activeInternalSquads":["s-1","s-2"],"subscriptionUrl":"https://sub.example.com/u-9"}}`

	user, ok := ParseUser(json.RawMessage(body))
	if !ok {
		t.Fatal("ParseUser() не разобрал валидный ответ")
	}
	if user.Username != "gamma" {
		t.Errorf("Username = %q, ожидалось gamma", user.Username)
	}
	if user.TrafficLimitBytes != 1073741824 {
		t.Errorf("TrafficLimitBytes = %d, ожидалось 1073741824", user.TrafficLimitBytes)
	}
	if user.HwidDeviceLimit == nil || *user.HwidDeviceLimit != 3 {
		t.Errorf("HwidDeviceLimit = %v, ожидалось 3", user.HwidDeviceLimit)
	}
	if len(user.ActiveInternalSquads) != 2 {
		t.Errorf("ActiveInternalSquads = %v, ожидалось 2 сквада", user.ActiveInternalSquads)
	}
	if user.SubscriptionURL != "https://sub.example.com/u-9" {
		t.Errorf("SubscriptionURL = %q", user.SubscriptionURL)
	}
}
