package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

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

	viper.SetDefault("router.a_link.kind", "udp")
	viper.SetDefault("router.a_link.listen", ":5552")
	viper.SetDefault("router.a_link.peer", "127.0.0.1:5551")
	viper.SetDefault("router.a_link.device", "/dev/ttyUSB0")
	viper.SetDefault("router.gw_link.listen", ":5553")
	viper.SetDefault("router.gw_link.peer", "127.0.0.1:5554")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config: %v", err)
		}
	}
}

func openALink() link.Link {
	switch viper.GetString("router.a_link.kind") {
	case "serial":
		dev, err := os.OpenFile(viper.GetString("router.a_link.device"), os.O_RDWR, 0)
		if err != nil {
			log.Fatalf("Failed to open serial device: %v", err)
		}
		return link.NewSerial(dev)
	case "udp":
		l, err := link.NewUDP(viper.GetString("router.a_link.listen"), viper.GetString("router.a_link.peer"))
		if err != nil {
			log.Fatalf("Failed to open origin-side link: %v", err)
		}
		return l
	default:
		log.Fatalf("Unknown link kind %q", viper.GetString("router.a_link.kind"))
		return nil
	}
}

func main() {
	loadConfig()

	log.Println("🍄 MycoBrain router node starting...")

	aLink := openALink()
	defer aLink.Close()

	gwLink, err := link.NewUDP(viper.GetString("router.gw_link.listen"), viper.GetString("router.gw_link.peer"))
	if err != nil {
		log.Fatalf("Failed to open gateway-side link: %v", err)
	}
	defer gwLink.Close()

	aEdge := router.NewEdge("uart", mdp.EndpointRouter, mdp.EndpointOrigin, aLink,
		reliability.RouterSlots, reliability.WiredRTOMS)
	gwEdge := router.NewEdge("lora", mdp.EndpointRouter, mdp.EndpointGateway, gwLink,
		reliability.RouterSlots, reliability.RadioRTOMS)
	aEdge.Logger = log.Default()
	gwEdge.Logger = log.Default()

	node := router.NewRouter(aEdge, gwEdge)
	node.Logger = log.Default()

	start := time.Now()
	now := func() uint64 { return uint64(time.Since(start).Milliseconds()) }

	node.Boot(now())
	log.Println("✅ Router ready: bridging origin ↔ gateway")

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
			return
		}
	}
}
