package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/MycoBrain/mycobrain-node/pkg/crypto"
	"github.com/MycoBrain/mycobrain-node/pkg/gateway"
	"github.com/MycoBrain/mycobrain-node/pkg/link"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
	"github.com/MycoBrain/mycobrain-node/pkg/reliability"
	"github.com/MycoBrain/mycobrain-node/pkg/router"
)

func loadConfig() {
	viper.SetConfigName("mycobrain")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/mycobrain")
	viper.SetEnvPrefix("MYCO")
	viper.AutomaticEnv()

	viper.SetDefault("gateway.link.listen", ":5554")
	viper.SetDefault("gateway.link.peer", "127.0.0.1:5553")
	viper.SetDefault("gateway.http_port", 8080)
	viper.SetDefault("gateway.verify_key_path", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config: %v", err)
		}
	}
}

func main() {
	loadConfig()

	log.Println("🍄 MycoBrain gateway node starting...")

	radio, err := link.NewUDP(viper.GetString("gateway.link.listen"), viper.GetString("gateway.link.peer"))
	if err != nil {
		log.Fatalf("Failed to open radio link: %v", err)
	}
	defer radio.Close()

	edge := router.NewEdge("lora", mdp.EndpointGateway, mdp.EndpointRouter, radio,
		reliability.DefaultSlots, reliability.RadioRTOMS)
	edge.Logger = log.Default()

	host := gateway.NewHost(os.Stdin, os.Stdout)

	if path := viper.GetString("gateway.verify_key_path"); path != "" {
		pemData, err := crypto.LoadKeyFromFile(path)
		if err != nil {
			log.Fatalf("Failed to load verify key: %v", err)
		}
		pub, err := crypto.ImportPublicKeyPEM(pemData)
		if err != nil {
			log.Fatalf("Failed to parse verify key: %v", err)
		}
		host.VerifyKey = pub
		log.Printf("✓ Envelope verification enabled (%s)", path)
	} else {
		log.Println("⚠️  No verify key configured, envelopes reported unverified")
	}

	node := router.NewGateway(edge, host)
	node.Logger = log.Default()

	serverCfg := gateway.DefaultServerConfig()
	serverCfg.Port = viper.GetInt("gateway.http_port")
	api := gateway.NewServer(serverCfg, host.Submit)
	api.Status = node.Status

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := api.Start(ctx); err != nil {
			log.Printf("API server stopped: %v", err)
		}
	}()
	log.Printf("🌐 HTTP API listening on port %d", serverCfg.Port)

	start := time.Now()
	now := func() uint64 { return uint64(time.Since(start).Milliseconds()) }

	node.Boot(now())
	log.Println("✅ Gateway ready: mirroring radio traffic to host")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			node.Step(now())
		case <-sigChan:
			log.Println("Shutting down gracefully...")
			cancel()
			return
		}
	}
}
