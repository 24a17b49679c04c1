package domain

// DefaultSpamLexicon: фразы в нижнем регистре, поиск по подстроке
var DefaultSpamLexicon = []string{
	"free money", "buy now", "click here", "subscribe", "promo",
	"win now", "limited offer", "make money", "earn cash", "casino",
	"viagra", "loan offer", "weight loss", "100% free", "act now",
	"dear friend", "you have won", "congratulations you",
}
