package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"karaoke_party/internal/storage"
)

var ctx = context.Background()

// Video — разрешённая песня из внешнего каталога
type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	ChannelName string `json:"channel_name"`
	CoverURL    string `json:"cover_url"`
	DurationSec int    `json:"duration_sec"`
}

type searchAPIResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosAPIResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// SearchVideos ищет песни по свободному запросу через YouTube Data API,
// результат кэшируется в Redis на час.
func SearchVideos(query string) ([]Video, error) {
	cacheKey := "yt_search_" + query
	if cached, err := storage.RedisClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
		var videos []Video
		if err := json.Unmarshal([]byte(cached), &videos); err == nil {
			return videos, nil
		}
	}

	params := url.Values{}
	params.Set("key", os.Getenv("YOUTUBE_API_KEY"))
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "10")
	params.Set("q", query)

	body, err := apiGet("https://www.googleapis.com/youtube/v3/search", params)
	if err != nil {
		return nil, err
	}

	var apiResp searchAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(apiResp.Items))
	for _, item := range apiResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			ChannelName: item.Snippet.ChannelTitle,
			CoverURL:    item.Snippet.Thumbnails.Medium.URL,
		})
	}

	if encoded, err := json.Marshal(videos); err == nil {
		// Ошибки кэширования не критичны
		storage.RedisClient.Set(ctx, cacheKey, string(encoded), time.Hour)
	}

	return videos, nil
}

// VideoDetails возвращает метаданные одной песни. Нераспознанная длительность
// заменяется случайным безопасным значением, это не ошибка: добавление песни
// важнее точности таймера.
func VideoDetails(videoID string) (*Video, error) {
	cacheKey := "yt_video_" + videoID
	if cached, err := storage.RedisClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
		var video Video
		if err := json.Unmarshal([]byte(cached), &video); err == nil {
			return &video, nil
		}
	}

	params := url.Values{}
	params.Set("key", os.Getenv("YOUTUBE_API_KEY"))
	params.Set("part", "snippet,contentDetails")
	params.Set("id", videoID)

	body, err := apiGet("https://www.googleapis.com/youtube/v3/videos", params)
	if err != nil {
		return nil, err
	}

	var apiResp videosAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Items) == 0 {
		return nil, errors.New("видео не найдено в каталоге")
	}

	item := apiResp.Items[0]
	video := Video{
		VideoID:     videoID,
		Title:       item.Snippet.Title,
		ChannelName: item.Snippet.ChannelTitle,
		CoverURL:    item.Snippet.Thumbnails.Medium.URL,
	}
	if sec, ok := ParseISODuration(item.ContentDetails.Duration); ok && sec > 0 {
		video.DurationSec = sec
	} else {
		video.DurationSec = FallbackDurationSec()
	}

	if encoded, err := json.Marshal(video); err == nil {
		storage.RedisClient.Set(ctx, cacheKey, string(encoded), time.Hour)
	}

	return &video, nil
}

func apiGet(endpoint string, params url.Values) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest("GET", endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("каталог вернул статус " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
