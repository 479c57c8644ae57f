package handlers

import (
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/config"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/remna"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/services"
)

var (
	cfg         *config.Config
	remnaClient *remna.Client
	activation  *services.ActivationEngine
)

// Init связывает обработчики с конфигурацией и клиентом панели.
// Вызывается один раз из main до регистрации маршрутов.
func Init(c *config.Config) {
	cfg = c
	remnaClient = remna.New(c.RemnaAPIURL, c.RemnaAdminToken)
	activation = services.NewActivationEngine(remnaClient)
}
