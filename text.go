package main

import "github.com/Zachkp/portfolio/internal/web"

var siteContent = web.Content{
	Title: "Zach Kordas-Potter",
	AboutMe: `I love building software that’s both useful and fun, and I’m always curious about how things work behind the scenes.
	Most of my projects start with a simple idea and turn into a chance to learn something new, whether it’s exploring a
	different language, experimenting with tools, or solving tricky problems.`,
	Projects: []web.Project{
		{
			Title: "Terminal Mail Client",
			Description: `A terminal-based email client built in Go with fuzzyfinder capabilities
	using the Charmbracelet TUI framework and go-imap.`,
		},
		{
			Title: "Terminal Music Player",
			Description: `A terminal-based music streaming application built in Go with a TUI
	interface, using yt-dlp and mpv for YouTube Music playback from the command line.`,
		},
		{
			Title: "Game Recommender",
			Description: `A machine learning web application that uses TF-IDF vectorization and cosine
	similarity to recommend games from their descriptions, with data visualizations and
	filtering by user reviews and ratings.`,
		},
		{
			Title: "Portfolio Site",
			Description: `This site: Go, Gin and HTMX, with per-visit project ratings rendered
	on the server.`,
		},
	},
}
