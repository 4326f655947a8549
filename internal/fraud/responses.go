package fraud

// Canned intervention replies per language. When a session is blocked or
// step-up verification is required these override whatever the assistant
// would normally say; the risk controls speak, not the bot.

var blockedResponses = map[string]string{
	"english": "For your security, I've paused this conversation and our fraud team has been notified. " +
		"Please visit your nearest branch or call the number on the back of your card to continue.",
	"hindi": "आपकी सुरक्षा के लिए, मैंने यह बातचीत रोक दी है और हमारी धोखाधड़ी टीम को सूचित कर दिया गया है। " +
		"कृपया आगे बढ़ने के लिए अपनी निकटतम शाखा पर जाएँ या अपने कार्ड के पीछे दिए नंबर पर कॉल करें।",
	"marathi": "तुमच्या सुरक्षिततेसाठी मी हे संभाषण थांबवले आहे आणि आमच्या फसवणूक पथकाला कळवले आहे. " +
		"कृपया पुढे जाण्यासाठी जवळच्या शाखेला भेट द्या किंवा तुमच्या कार्डच्या मागील क्रमांकावर कॉल करा.",
	"hinglish": "Aapki security ke liye maine yeh conversation rok di hai aur hamari fraud team ko inform " +
		"kar diya gaya hai. Aage badhne ke liye apni nazdeeki branch jaayen ya card ke peeche diye number par call karein.",
}

var stepUpResponses = map[string]string{
	"english": "I've noticed some unusual activity on this session. Before we continue, " +
		"I need to verify your identity. Please answer the verification questions sent to your registered mobile number.",
	"hindi": "मैंने इस सत्र में कुछ असामान्य गतिविधि देखी है। आगे बढ़ने से पहले मुझे आपकी पहचान सत्यापित करनी होगी। " +
		"कृपया अपने पंजीकृत मोबाइल नंबर पर भेजे गए सत्यापन प्रश्नों का उत्तर दें।",
	"marathi": "या सत्रात मला काही असामान्य हालचाल दिसली आहे. पुढे जाण्यापूर्वी मला तुमची ओळख पडताळावी लागेल. " +
		"कृपया तुमच्या नोंदणीकृत मोबाईल क्रमांकावर पाठवलेल्या पडताळणी प्रश्नांची उत्तरे द्या.",
	"hinglish": "Maine is session mein kuch unusual activity notice ki hai. Aage badhne se pehle mujhe aapki " +
		"identity verify karni hogi. Apne registered mobile number par bheje gaye verification questions ka jawab dein.",
}

// BlockedResponse returns the localized hard-block reply, falling back to
// English for unknown languages.
func BlockedResponse(language string) string {
	if r, ok := blockedResponses[language]; ok {
		return r
	}
	return blockedResponses["english"]
}

// StepUpResponse returns the localized step-up verification prompt.
func StepUpResponse(language string) string {
	if r, ok := stepUpResponses[language]; ok {
		return r
	}
	return stepUpResponses["english"]
}
