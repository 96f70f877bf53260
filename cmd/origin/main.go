package main

import (
	"crypto/ed25519"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/MycoBrain/mycobrain-node/pkg/crypto"
	"github.com/MycoBrain/mycobrain-node/pkg/durable"
	"github.com/MycoBrain/mycobrain-node/pkg/effector"
	"github.com/MycoBrain/mycobrain-node/pkg/envelope"
	"github.com/MycoBrain/mycobrain-node/pkg/link"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
	"github.com/MycoBrain/mycobrain-node/pkg/reliability"
	"github.com/MycoBrain/mycobrain-node/pkg/router"
	"github.com/MycoBrain/mycobrain-node/pkg/sensor"
)

func loadConfig() {
	viper.SetConfigName("mycobrain")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/mycobrain")
	viper.SetEnvPrefix("MYCO")
	viper.AutomaticEnv()

	viper.SetDefault("device_id", "mb-A-01")
	viper.SetDefault("device_role", "origin")
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("key_path", "")
	viper.SetDefault("origin.link.kind", "udp")
	viper.SetDefault("origin.link.listen", ":5551")
	viper.SetDefault("origin.link.peer", "127.0.0.1:5552")
	viper.SetDefault("origin.link.device", "/dev/ttyUSB0")
	viper.SetDefault("origin.sample_ms", 100)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config: %v", err)
		}
	}
}

func openLink() link.Link {
	switch viper.GetString("origin.link.kind") {
	case "serial":
		dev, err := os.OpenFile(viper.GetString("origin.link.device"), os.O_RDWR, 0)
		if err != nil {
			log.Fatalf("Failed to open serial device: %v", err)
		}
		return link.NewSerial(dev)
	case "udp":
		l, err := link.NewUDP(viper.GetString("origin.link.listen"), viper.GetString("origin.link.peer"))
		if err != nil {
			log.Fatalf("Failed to open udp link: %v", err)
		}
		return l
	default:
		log.Fatalf("Unknown link kind %q", viper.GetString("origin.link.kind"))
		return nil
	}
}

func loadSigningKey(path string) ed25519.PrivateKey {
	if path == "" {
		log.Println("⚠️  No signing key configured, using placeholder signatures")
		return nil
	}

	pemData, err := crypto.LoadKeyFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}
	key, err := crypto.ImportPrivateKeyPEM(pemData)
	if err != nil {
		log.Fatalf("Failed to parse signing key: %v", err)
	}

	log.Printf("✓ Signing key loaded from %s", path)
	return key
}

func main() {
	loadConfig()

	log.Println("🍄 MycoBrain origin node starting...")

	dataDir := viper.GetString("data_dir")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	kv, err := durable.OpenSQLiteKV(filepath.Join(dataDir, "origin.db"))
	if err != nil {
		log.Fatalf("Failed to open durable store: %v", err)
	}
	defer kv.Close()

	ring, err := durable.OpenRing(kv, durable.DefaultSlots)
	if err != nil {
		log.Fatalf("Failed to open durable ring: %v", err)
	}
	log.Printf("✓ Durable ring: %d/%d slots pending, tx_seq=%d", ring.Count(), ring.Capacity(), ring.TxSeq())

	identity := durable.NewIdentity(kv)
	deviceRole := identity.Role(viper.GetString("device_role"))

	l := openLink()
	defer l.Close()

	edge := router.NewEdge("uart", mdp.EndpointOrigin, mdp.EndpointRouter, l,
		reliability.DefaultSlots, reliability.WiredRTOMS)
	edge.Logger = log.Default()

	// the acquisition producer feeds the loop through an SPSC ring
	samples := sensor.NewRing(64)
	sim := sensor.NewSim()
	sampleEvery := time.Duration(viper.GetInt("origin.sample_ms")) * time.Millisecond
	go func() {
		ticker := time.NewTicker(sampleEvery)
		defer ticker.Stop()
		for range ticker.C {
			s, _ := sim.ReadSample()
			samples.Push(s)
		}
	}()

	eff := effector.NewReference()
	eff.OnReboot = func() {
		log.Println("♻️  Reboot requested by command")
	}

	origin := router.NewOrigin(router.OriginConfig{
		DeviceID:   viper.GetString("device_id"),
		DeviceRole: deviceRole,
		Proto:      envelope.ProtoLoRaWAN,
		SigningKey: loadSigningKey(viper.GetString("key_path")),
		Logger:     log.Default(),
	}, edge, ring, samples, eff)

	start := time.Now()
	now := func() uint64 { return uint64(time.Since(start).Milliseconds()) }

	if err := origin.Boot(now()); err != nil {
		log.Fatalf("Failed to replay durable queue: %v", err)
	}
	log.Printf("✅ Origin ready: device=%s role=%s", viper.GetString("device_id"), deviceRole)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			origin.Step(now())
		case <-sigChan:
			log.Println("Shutting down gracefully...")
			return
		}
	}
}
