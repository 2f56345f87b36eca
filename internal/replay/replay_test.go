package replay_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/varbox/internal/adapters/framecodec"
	"github.com/okian/varbox/internal/adapters/repository"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/bout/bouttest"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/replay"
	. "github.com/smartystreets/goconvey/convey"
)

func oneRound() bout.Config {
	return bout.Settings{FPS: 30, RoundSeconds: 15, RestSeconds: 1, TotalRounds: 1}.Apply(bout.DefaultConfig())
}

// writeBout stores frames as JSON Lines next to a shared arena.png.
func writeBout(t *testing.T, dir string, frames []*model.Frame) string {
	t.Helper()
	img, err := os.Create(filepath.Join(dir, "arena.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(img, bouttest.Arena()); err != nil {
		t.Fatal(err)
	}
	_ = img.Close()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range frames {
		rec, err := framecodec.FromFrame(&model.Frame{Index: f.Index, Detections: f.Detections})
		if err != nil {
			t.Fatal(err)
		}
		rec.ImagePath = "arena.png"
		if err := enc.Encode(rec); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "bout.jsonl")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayMissingInput(t *testing.T) {
	Convey("Given a replay without input", t, func() {
		Convey("When no path is configured", func() {
			_, err := replay.New(replay.Config{Bout: oneRound()}).Run(context.Background())
			So(err, ShouldEqual, replay.ErrMissingInput)
		})

		Convey("When the file does not exist", func() {
			_, err := replay.New(replay.Config{
				Input: filepath.Join(t.TempDir(), "absent.jsonl"),
				Bout:  oneRound(),
			}).Run(context.Background())
			So(err, ShouldWrap, replay.ErrMissingInput)
		})
	})
}

func TestReplayFullBout(t *testing.T) {
	Convey("Given a recorded one-round bout", t, func() {
		dir := t.TempDir()
		frames := bouttest.NewScene().Script(480,
			func(i int) bool { return i%30 == 0 && i <= 360 },
			func(i int) bool { return i == 45 || i == 145 || i == 245 || i == 345 },
		)
		input := writeBout(t, dir, frames)
		output := filepath.Join(dir, "out", "scorecard.json")
		store := repository.NewMemoryStore()

		res, err := replay.New(replay.Config{
			Input:    input,
			Output:   output,
			BoutID:   "final",
			Bout:     oneRound(),
			Stoppage: true,
		}, replay.WithStore(store)).Run(context.Background())

		Convey("Then the bout is scored like a live one", func() {
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldEqual, 0)
			So(res.Scorecard.BoutID, ShouldEqual, "final")
			So(res.Scorecard.Scores, ShouldResemble, model.Tally{Red: 12, Blue: 4})
			So(res.Scorecard.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})
			So(res.Scorecard.BoutOver, ShouldBeTrue)
		})

		Convey("Then the scorecard file is written", func() {
			So(err, ShouldBeNil)
			raw, err := os.ReadFile(output)
			So(err, ShouldBeNil)
			var sc model.Scorecard
			So(json.Unmarshal(raw, &sc), ShouldBeNil)
			So(sc.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})
			So(sc.Decisions, ShouldHaveLength, 1)
		})

		Convey("Then the scorecard is persisted", func() {
			saved, err := store.Scorecard(context.Background(), "final")
			So(err, ShouldBeNil)
			So(saved.Scores, ShouldResemble, model.Tally{Red: 12, Blue: 4})
		})
	})
}

func TestReplayStoppage(t *testing.T) {
	Convey("Given a recording that ends mid-round", t, func() {
		dir := t.TempDir()
		frames := bouttest.NewScene().Script(31,
			func(i int) bool { return i == 30 },
			func(int) bool { return false },
		)
		input := writeBout(t, dir, frames)

		Convey("When stoppage is enabled", func() {
			var out bytes.Buffer
			res, err := replay.New(replay.Config{Input: input, Bout: oneRound(), Stoppage: true},
				replay.WithStdout(&out)).Run(context.Background())

			Convey("Then the partial round is judged and printed", func() {
				So(err, ShouldBeNil)
				So(res.Scorecard.Decisions, ShouldHaveLength, 1)
				So(res.Scorecard.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})
				So(res.Scorecard.BoutID, ShouldNotBeEmpty)
				So(out.String(), ShouldContainSubstring, `"bout_over": true`)
			})
		})

		Convey("When stoppage is disabled", func() {
			res, err := replay.New(replay.Config{Input: input, Bout: oneRound()},
				replay.WithStdout(&bytes.Buffer{})).Run(context.Background())

			Convey("Then the round stays open", func() {
				So(err, ShouldBeNil)
				So(res.Scorecard.Decisions, ShouldBeEmpty)
				So(res.Scorecard.InRound, ShouldBeTrue)
				So(res.Scorecard.BoutOver, ShouldBeFalse)
			})
		})
	})
}

func TestReplaySkipsBadFrames(t *testing.T) {
	Convey("Given a recording with an unreadable image", t, func() {
		dir := t.TempDir()
		input := filepath.Join(dir, "bad.jsonl")
		content := `{"index":1,"image":"not base64!","detections":[]}` + "\n" +
			`{"index":2,"detections":[]}` + "\n"
		So(os.WriteFile(input, []byte(content), 0o600), ShouldBeNil)

		res, err := replay.New(replay.Config{Input: input, Bout: oneRound()},
			replay.WithStdout(&bytes.Buffer{})).Run(context.Background())

		Convey("Then the bad frame is skipped and the rest scored", func() {
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldEqual, 1)
			So(res.Scorecard.Frames, ShouldEqual, 1)
		})
	})

	Convey("Given a recording with repeated and rewound frame indices", t, func() {
		input := filepath.Join(t.TempDir(), "rewound.jsonl")
		var content string
		for _, idx := range []int{1, 2, 2, 1, 0, 3} {
			content += fmt.Sprintf(`{"index":%d,"detections":[]}`, idx) + "\n"
		}
		So(os.WriteFile(input, []byte(content), 0o600), ShouldBeNil)

		res, err := replay.New(replay.Config{Input: input, Bout: oneRound()},
			replay.WithStdout(&bytes.Buffer{})).Run(context.Background())

		Convey("Then those frames are skipped and the replay continues", func() {
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldEqual, 3)
			So(res.Scorecard.Frames, ShouldEqual, 3)
		})
	})

	Convey("Given a recording with malformed JSON", t, func() {
		input := filepath.Join(t.TempDir(), "broken.jsonl")
		So(os.WriteFile(input, []byte("{\"index\":1,"), 0o600), ShouldBeNil)

		_, err := replay.New(replay.Config{Input: input, Bout: oneRound()},
			replay.WithStdout(&bytes.Buffer{})).Run(context.Background())

		Convey("Then the replay fails", func() {
			So(err, ShouldWrap, framecodec.ErrInvalidRecord)
		})
	})
}

func TestReplaySQLite(t *testing.T) {
	Convey("Given a replay persisting to sqlite", t, func() {
		dir := t.TempDir()
		input := writeBout(t, dir, bouttest.NewScene().Script(10,
			func(int) bool { return false }, func(int) bool { return false }))
		db := filepath.Join(dir, "db", "replay.sqlite3")

		_, err := replay.New(replay.Config{Input: input, SQLitePath: db, BoutID: "sq", Bout: oneRound()},
			replay.WithStdout(&bytes.Buffer{})).Run(context.Background())
		So(err, ShouldBeNil)

		Convey("Then the scorecard can be read back", func() {
			store, err := repository.NewSQLiteStore(db)
			So(err, ShouldBeNil)
			defer store.Close()
			sc, err := store.Scorecard(context.Background(), "sq")
			So(err, ShouldBeNil)
			So(sc.Frames, ShouldEqual, 10)
		})
	})
}
