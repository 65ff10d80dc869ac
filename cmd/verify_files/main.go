package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type report struct {
	checked  int
	ok       int
	missing  int
	mismatch int
	pruned   int
}

// verify_files walks every file record and checks that its stored bytes
// still exist and still hash to the recorded checksum.
func main() {
	uploader := flag.String("uploader", "", "Only check files uploaded by this user ID")
	strategy := flag.String("strategy", "", "Only check files produced by this strategy")
	prune := flag.Bool("prune", false, "Delete records whose stored bytes are missing")
	dryRun := flag.Bool("dry-run", false, "With -prune, show what would be deleted without deleting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	storage, err := repository.NewBlobStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}

	db := client.Database(cfg.MongoDB.Database)
	store := repository.NewMongoFileStore(db)

	filter := bson.M{}
	if *uploader != "" {
		filter["uploaded_by"] = *uploader
	}
	if *strategy != "" {
		filter["strategy"] = *strategy
	}

	cursor, err := db.Collection("files").Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Fatalf("Failed to query files: %v", err)
	}
	defer cursor.Close(ctx)

	var r report
	for cursor.Next(ctx) {
		var record domain.FileRecord
		if err := cursor.Decode(&record); err != nil {
			fmt.Printf("⚠️  Failed to decode record: %v\n", err)
			continue
		}
		r.checked++

		sum, err := checksum(ctx, storage, record.StoredPath)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			r.missing++
			fmt.Printf("❌ %s: stored bytes missing at %s\n", record.ID, record.StoredPath)
			if *prune {
				if *dryRun {
					fmt.Printf("   DRY RUN - would delete record %s\n", record.ID)
					continue
				}
				if err := store.Delete(ctx, record.ID); err != nil {
					fmt.Printf("   ⚠️  Failed to delete record: %v\n", err)
					continue
				}
				r.pruned++
			}
		case err != nil:
			fmt.Printf("⚠️  %s: %v\n", record.ID, err)
		case record.Checksum != "" && sum != record.Checksum:
			r.mismatch++
			fmt.Printf("❌ %s: checksum mismatch (recorded %s, actual %s)\n", record.ID, record.Checksum, sum)
		default:
			r.ok++
		}
	}
	if err := cursor.Err(); err != nil {
		log.Fatalf("Cursor error: %v", err)
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Records checked:     %d\n", r.checked)
	fmt.Printf("Intact:              %d\n", r.ok)
	fmt.Printf("Missing bytes:       %d\n", r.missing)
	fmt.Printf("Checksum mismatches: %d\n", r.mismatch)
	if *prune {
		fmt.Printf("Records pruned:      %d\n", r.pruned)
	}

	if r.missing > r.pruned || r.mismatch > 0 {
		os.Exit(2)
	}
}

func checksum(ctx context.Context, storage domain.BlobStorage, path string) (string, error) {
	rc, err := storage.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
