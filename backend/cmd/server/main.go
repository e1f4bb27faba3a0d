package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"learn2go/backend/internal/sim"
	"learn2go/backend/internal/telemetry"
	"learn2go/backend/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "адрес HTTP сервера")
		staticDir   = flag.String("static", "", "каталог статики клиента (пусто - не раздавать)")
		netProfile  = flag.String("net-profile", "", "профиль имитации сети: mobile_3g, mobile_4g, wifi_poor, school_lan")
		telemetryOn = flag.Bool("telemetry", true, "запись телеметрии игровых сессий")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	tm := telemetry.NewTelemetryManager(logger)
	tm.SetEnabled(*telemetryOn)

	games := sim.BuiltinGames()
	logger.Printf("[Server] Загружено %d мини-игр", len(games))

	server := ws.NewWSServer(games, tm, logger)
	if *netProfile != "" {
		server.EnableNetworkSimulation(*netProfile)
	}

	http.HandleFunc("/ws", server.HandleWS)
	http.HandleFunc("/stats", server.HandleStats)

	if *staticDir != "" {
		if _, err := os.Stat(*staticDir); os.IsNotExist(err) {
			logger.Printf("[Server] ПРЕДУПРЕЖДЕНИЕ: каталог статики %s не существует", *staticDir)
		}
		http.Handle("/", http.FileServer(http.Dir(*staticDir)))
		logger.Printf("[Server] Раздаем статику из %s", *staticDir)
	}

	logger.Printf("[Server] Запуск на %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatal(err)
	}
}
