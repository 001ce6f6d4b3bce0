package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"access-code-service/internal/config"
	"access-code-service/internal/domain/model"
	pg "access-code-service/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewMembershipPlanRepo(pool)

	// If plans already exist, do nothing
	plans, err := planRepo.ListAll(ctx, nil)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%s, level=%d)\n", p.Name, p.PlanCode, p.Level)
		}
		return
	}

	seed := []struct {
		Code  string
		Name  string
		Level int
	}{
		{"free", "Free", 0},
		{"member", "Member", 1},
		{"plus", "Plus", 2},
		{"pro", "Pro", 3},
	}

	for _, s := range seed {
		p, err := model.NewMembershipPlan(uuid.NewString(), s.Code, s.Name, s.Level)
		if err != nil {
			log.Fatalf("plan %q: %v", s.Code, err)
		}
		if err := planRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Code, err)
		}
		fmt.Printf("seeded: %s (id=%s, level=%d)\n", p.PlanCode, p.ID, p.Level)
	}

	fmt.Println("Seeding complete.")
}
