package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/neurorecall/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Messages of the recording page.
const (
	msgBadNumbers      = "شماره تست یا دور نامعتبر است"
	msgNoAudio         = "هیچ فایل صوتی ارسال نشده است"
	msgNoFileSelected  = "هیچ فایلی انتخاب نشده است"
	msgAudioTooLarge   = "حجم فایل از 5 مگابایت بیشتر است"
	msgProcessingError = "خطا در پردازش فایل صوتی. لطفاً مجدداً تلاش کنید."
)

func (s *Server) submitAudio(c *gin.Context) {
	testNumber, errTest := strconv.Atoi(c.PostForm("test_number"))
	roundNumber, errRound := strconv.Atoi(c.PostForm("round_number"))
	if errTest != nil || errRound != nil {
		badRequest(c, msgBadNumbers, nil)
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, msgNoAudio, nil)
		return
	}
	if fh.Filename == "" {
		badRequest(c, msgNoFileSelected, nil)
		return
	}
	if fh.Size > services.MaxAudioSize {
		badRequest(c, msgAudioTooLarge, nil)
		return
	}
	data, err := readUpload(fh, services.MaxAudioSize)
	if err != nil {
		s.fail(c, err, nil)
		return
	}

	res, err := s.scores.Submit(c.Request.Context(), currentUser(c), services.SubmitInput{
		TestNumber:  testNumber,
		RoundNumber: roundNumber,
		Audio:       data,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		s.failAs(c, err, msgProcessingError, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcribed_words": nonNil(res.TranscribedWords),
		"total_words":       res.TotalWords,
		"correct_words":     res.CorrectWords,
		"incorrect_words":   nonNil(res.IncorrectWords),
		"round_completed":   res.RoundCompleted,
		"message":           res.Message,
	})
}

func nonNil(words []string) []string {
	if words == nil {
		return []string{}
	}
	return words
}
