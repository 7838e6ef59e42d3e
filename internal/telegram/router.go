// Package telegram is the bot front-end: a student sends a photographed or
// typed question and gets the diagnosis back as a message.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/pipeline"
	"kazanim-analiz/internal/search"
	"kazanim-analiz/internal/util"
)

// analysisTimeout caps one full pipeline run triggered from chat.
const analysisTimeout = 2 * time.Minute

type Router struct {
	Bot     *tgbotapi.BotAPI
	Orc     *pipeline.Orchestrator
	Archive *search.ArchiveRepo // nil when no database is configured

	// per-chat declared grade/subject, set via /sinif and /ders
	prefs prefStore
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.handleCommand(*msg)
		return
	}

	switch {
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case strings.TrimSpace(msg.Text) != "":
		r.runAnalysis(cid, analysis.State{
			InputKind: analysis.InputText,
			RawText:   msg.Text,
		})
	default:
		r.send(cid, "Soru fotoğrafı ya da soru metni gönderin.")
	}
}

func (r *Router) handleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "basla":
		r.send(cid, "Soru fotoğrafı ya da metnini gönderin; hangi kazanımları test ettiğini ve neleri çalışmanız gerektiğini söyleyeyim.\nKomutlar: /sinif <1-12>, /ders <ad>, /durum")
	case "sinif":
		arg := strings.TrimSpace(msg.CommandArguments())
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > 12 {
			r.send(cid, "Kullanım: /sinif 7")
			return
		}
		r.prefs.setGrade(cid, n)
		r.send(cid, fmt.Sprintf("Tamam, sınıf %d olarak kaydedildi.", n))
	case "ders":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			r.send(cid, "Kullanım: /ders matematik")
			return
		}
		r.prefs.setSubject(cid, arg)
		r.send(cid, "Tamam, ders "+arg+" olarak kaydedildi.")
	case "durum":
		grade, subject := r.prefs.get(cid)
		r.send(cid, fmt.Sprintf("Sınıf: %s, ders: %s", orDash(strconv.Itoa(grade), grade > 0), orDash(subject, subject != "")))
	default:
		r.send(cid, "Bilinmeyen komut.")
	}
}

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.sendError(cid, err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	img, err := download(url)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	r.send(cid, "Fotoğraf alındı, soru analiz ediliyor…")
	r.runAnalysis(cid, analysis.State{
		InputKind: analysis.InputImage,
		ImageData: img,
		ImageMIME: util.PickMIME("", "", img),
	})
}

func (r *Router) runAnalysis(cid int64, st analysis.State) {
	grade, subject := r.prefs.get(cid)
	st.RequestID = uuid.NewString()
	st.UserGrade = grade
	st.UserSubject = subject
	st.CreatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	out, err := r.Orc.Run(ctx, st)
	if err != nil {
		r.sendError(cid, err)
		return
	}
	if r.Archive != nil && out.Done {
		if err := r.Archive.Upsert(ctx, out); err != nil {
			log.Printf("archive %s: %v", out.RequestID, err)
		}
	}
	r.send(cid, formatDiagnosis(out))
}

func (r *Router) send(cid int64, text string) {
	m := tgbotapi.NewMessage(cid, text)
	if _, err := r.Bot.Send(m); err != nil {
		log.Printf("telegram send to %d: %v", cid, err)
	}
}

func (r *Router) sendError(cid int64, err error) {
	log.Printf("chat %d: %v", cid, err)
	r.send(cid, "Bir şeyler ters gitti, lütfen tekrar deneyin.")
}

var fileClient = &http.Client{Timeout: 60 * time.Second}

func download(url string) ([]byte, error) {
	resp, err := fileClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func orDash(s string, ok bool) string {
	if !ok {
		return "—"
	}
	return s
}
